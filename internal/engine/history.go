package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/pattern"
	"github.com/fluxofin/dreflow/internal/service"
)

// History matching defaults.
const (
	defaultSimilarityThreshold = 0.85
	defaultHistoryLimit        = 500
	maxHistoryConfidence       = 95.0
)

// HistoryMatch is a category suggestion backed by previously classified
// transactions with similar descriptions.
type HistoryMatch struct {
	CategoryID string
	SimilarTo  string
	Confidence float64
	MatchCount int
}

// HistoryMatcher suggests categories from a tenant's own classification
// history.
type HistoryMatcher struct {
	storage             service.Storage
	similarityThreshold float64
	limit               int
}

// NewHistoryMatcher creates a history matcher.
func NewHistoryMatcher(storage service.Storage) *HistoryMatcher {
	return &HistoryMatcher{
		storage:             storage,
		similarityThreshold: defaultSimilarityThreshold,
		limit:               defaultHistoryLimit,
	}
}

// FindMatch looks for the most frequent category among recent transactions
// whose descriptions are similar to txn's. Returns nil when nothing clears
// the similarity threshold.
func (h *HistoryMatcher) FindMatch(ctx context.Context, txn *model.Transaction, days int) (*HistoryMatch, error) {
	if days <= 0 {
		days = 90
	}
	since := time.Now().AddDate(0, 0, -days)

	history, err := h.storage.GetClassifiedSince(ctx, txn.CompanyID, since, h.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load classification history: %w", err)
	}

	type bucket struct {
		example    string
		bestSim    float64
		sourceConf float64
		count      int
	}
	buckets := make(map[string]*bucket)

	for i := range history {
		prior := &history[i]
		if prior.CategoryID == nil || prior.ID == txn.ID {
			continue
		}
		sim := pattern.Similarity(txn.Description, prior.Description)
		if sim < h.similarityThreshold {
			continue
		}
		b := buckets[*prior.CategoryID]
		if b == nil {
			b = &bucket{}
			buckets[*prior.CategoryID] = b
		}
		b.count++
		if sim > b.bestSim {
			b.bestSim = sim
			b.example = prior.Description
			b.sourceConf = prior.Confidence
		}
	}

	var bestID string
	var best *bucket
	for id, b := range buckets {
		if best == nil || b.count > best.count || (b.count == best.count && b.bestSim > best.bestSim) {
			bestID, best = id, b
		}
	}
	if best == nil {
		return nil, nil
	}

	// Similarity dominates the blended confidence; the original result's
	// own confidence only nudges it.
	confidence := (best.bestSim*0.8 + (best.sourceConf/100)*0.2) * 100
	if confidence > maxHistoryConfidence {
		confidence = maxHistoryConfidence
	}

	return &HistoryMatch{
		CategoryID: bestID,
		SimilarTo:  best.example,
		Confidence: confidence,
		MatchCount: best.count,
	}, nil
}
