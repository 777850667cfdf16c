// Package engine runs the categorization waterfall over bank transactions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/llm"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/movement"
	"github.com/fluxofin/dreflow/internal/pattern"
	"github.com/fluxofin/dreflow/internal/service"
)

// AutoLearnConfidence is the minimum AI confidence that produces a
// candidate rule.
const AutoLearnConfidence = 70.0

// Options control which waterfall stages run for one categorization call.
// The zero value enables everything with default thresholds.
type Options struct {
	ConfidenceThreshold float64
	HistoryDays         int
	AITimeout           time.Duration
	SkipCache           bool
	SkipRules           bool
	SkipHistory         bool
	SkipAI              bool
	SkipAutoLearning    bool
}

func (o Options) withDefaults() Options {
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = 70
	}
	if o.HistoryDays <= 0 {
		o.HistoryDays = 90
	}
	if o.AITimeout <= 0 {
		o.AITimeout = 30 * time.Second
	}
	return o
}

// RuleGenerator creates candidate rules from accepted AI classifications.
type RuleGenerator interface {
	CreateFromClassification(ctx context.Context, txn *model.Transaction, categoryID string, confidence float64) (*model.CategoryRule, error)
}

// Engine is the categorization orchestrator. Each stage that fails to
// produce a validated result hands over to the next; when all of them pass,
// the transaction is flagged for human review with the full trace.
type Engine struct {
	storage    service.Storage
	cache      *CategoryCache
	history    *HistoryMatcher
	classifier llm.Client
	generator  RuleGenerator
	registry   *UploadRegistry
	logger     *slog.Logger
}

// New creates a categorization engine. classifier and generator may be nil,
// which disables the AI stage and auto-learning respectively.
func New(storage service.Storage, cache *CategoryCache, classifier llm.Client, generator RuleGenerator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCategoryCache(0)
	}
	return &Engine{
		storage:    storage,
		cache:      cache,
		history:    NewHistoryMatcher(storage),
		classifier: classifier,
		generator:  generator,
		registry:   NewUploadRegistry(),
		logger:     logger,
	}
}

// Categorize runs one transaction through the waterfall and persists the
// outcome. The returned result is never nil on a nil error: a transaction
// nothing could place comes back with NeedsReview set and no category.
func (e *Engine) Categorize(ctx context.Context, txn *model.Transaction, opts Options) (*model.ClassificationResult, error) {
	opts = opts.withDefaults()
	if txn == nil || txn.ID == "" {
		return nil, fmt.Errorf("%w: transaction is required", common.ErrValidation)
	}
	if txn.CompanyID == "" {
		return nil, fmt.Errorf("%w: transaction has no company", common.ErrValidation)
	}

	mt := movement.Classify(txn.Description, txn.Memo, txn.Amount)

	categories, err := e.storage.GetCategories(ctx, txn.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	catByID := make(map[string]*model.Category, len(categories))
	for i := range categories {
		catByID[categories[i].ID] = &categories[i]
	}

	result := &model.ClassificationResult{
		ClassifiedAt: time.Now(),
		MovementType: mt,
		NeedsReview:  true,
	}
	r := &result.Reasoning

	e.tryCache(txn, mt, catByID, opts, result)
	if result.NeedsReview {
		if err := e.tryRules(ctx, txn, mt, catByID, opts, result); err != nil {
			return nil, err
		}
	}
	if result.NeedsReview {
		if err := e.tryHistory(ctx, txn, mt, catByID, opts, result); err != nil {
			return nil, err
		}
	}
	if result.NeedsReview {
		e.tryAI(ctx, txn, mt, categories, catByID, opts, result)
	}

	if result.NeedsReview {
		r.Summary = "no stage produced a validated match"
		e.logger.Info("transaction needs review",
			"company_id", txn.CompanyID,
			"transaction_id", txn.ID,
			"movement_type", mt)
	} else {
		r.Source = result.Source
		if result.CategoryID != nil {
			e.cache.Put(txn.CompanyID, txn.Description, CacheEntry{
				CategoryID:   *result.CategoryID,
				CategoryName: result.CategoryName,
				Confidence:   result.Confidence,
			})
		}
	}

	if err := e.storage.UpdateTransactionCategorization(ctx, txn.CompanyID, txn.ID, result); err != nil {
		return nil, fmt.Errorf("failed to persist categorization: %w", err)
	}

	return result, nil
}

// accept fills the result for a winning stage.
func accept(result *model.ClassificationResult, categoryID, categoryName string, confidence float64, source model.ClassificationSource) {
	id := categoryID
	result.CategoryID = &id
	result.CategoryName = categoryName
	result.Confidence = confidence
	result.Source = source
	result.NeedsReview = false
}

func (e *Engine) tryCache(txn *model.Transaction, mt model.MovementType, catByID map[string]*model.Category, opts Options, result *model.ClassificationResult) {
	r := &result.Reasoning
	if opts.SkipCache {
		r.AddStage("cache", "skipped", "")
		return
	}

	entry, ok := e.cache.Get(txn.CompanyID, txn.Description)
	if !ok {
		r.AddStage("cache", "miss", "")
		return
	}

	cat, known := catByID[entry.CategoryID]
	if !known {
		// Stale entry pointing at a deleted category.
		r.AddStage("cache", "rejected", "cached category no longer exists")
		return
	}
	if err := movement.Validate(txn.Amount, mt, cat); err != nil {
		r.AddStage("cache", "rejected", err.Error())
		return
	}
	if entry.Confidence < opts.ConfidenceThreshold {
		r.AddStage("cache", "below_threshold", fmt.Sprintf("%.0f < %.0f", entry.Confidence, opts.ConfidenceThreshold))
		return
	}

	r.AddStage("cache", "hit", cat.Name)
	accept(result, entry.CategoryID, cat.Name, entry.Confidence, model.SourceCache)
}

func (e *Engine) tryRules(ctx context.Context, txn *model.Transaction, mt model.MovementType, catByID map[string]*model.Category, opts Options, result *model.ClassificationResult) error {
	r := &result.Reasoning
	if opts.SkipRules {
		r.AddStage("rules", "skipped", "")
		return nil
	}

	rules, err := e.storage.GetRules(ctx, txn.CompanyID, false)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	matches, err := pattern.NewMatcher(rules).Match(ctx, *txn)
	if err != nil {
		return fmt.Errorf("rule matching failed: %w", err)
	}
	if len(matches) == 0 {
		r.AddStage("rules", "no_match", "")
		return nil
	}

	for _, match := range matches {
		rule := match.Rule
		cat, known := catByID[rule.CategoryID]
		if !known {
			// Rules and categories come from the same tenant-scoped
			// queries, so this can only be a bug.
			return fmt.Errorf("%w: rule %s references category %s", common.ErrCrossTenant, rule.ID, rule.CategoryID)
		}
		if err := movement.Validate(txn.Amount, mt, cat); err != nil {
			r.AddStage("rules", "rejected", fmt.Sprintf("rule %s: %s", rule.ID, err.Error()))
			continue
		}
		if match.Score < opts.ConfidenceThreshold {
			r.AddStage("rules", "below_threshold", fmt.Sprintf("rule %s scored %.0f", rule.ID, match.Score))
			continue
		}

		if err := e.storage.IncrementRuleUsage(ctx, txn.CompanyID, rule.ID, time.Now()); err != nil {
			e.logger.Warn("failed to record rule usage", "rule_id", rule.ID, "error", err)
		}

		r.AddStage("rules", "matched", rule.Pattern)
		r.RuleID = rule.ID
		r.MatchedPattern = rule.Pattern
		accept(result, rule.CategoryID, cat.Name, match.Score, model.SourceRule)
		result.RuleID = rule.ID
		return nil
	}

	return nil
}

func (e *Engine) tryHistory(ctx context.Context, txn *model.Transaction, mt model.MovementType, catByID map[string]*model.Category, opts Options, result *model.ClassificationResult) error {
	r := &result.Reasoning
	if opts.SkipHistory {
		r.AddStage("history", "skipped", "")
		return nil
	}

	match, err := e.history.FindMatch(ctx, txn, opts.HistoryDays)
	if err != nil {
		return err
	}
	if match == nil {
		r.AddStage("history", "no_match", "")
		return nil
	}

	cat, known := catByID[match.CategoryID]
	if !known {
		r.AddStage("history", "rejected", "historical category no longer exists")
		return nil
	}
	if err := movement.Validate(txn.Amount, mt, cat); err != nil {
		r.AddStage("history", "rejected", err.Error())
		return nil
	}
	if match.Confidence < opts.ConfidenceThreshold {
		r.AddStage("history", "below_threshold", fmt.Sprintf("%.0f < %.0f", match.Confidence, opts.ConfidenceThreshold))
		return nil
	}

	r.AddStage("history", "matched", fmt.Sprintf("%d similar, e.g. %q", match.MatchCount, match.SimilarTo))
	r.SimilarTo = match.SimilarTo
	accept(result, match.CategoryID, cat.Name, match.Confidence, model.SourceHistory)
	return nil
}

func (e *Engine) tryAI(ctx context.Context, txn *model.Transaction, mt model.MovementType, categories []model.Category, catByID map[string]*model.Category, opts Options, result *model.ClassificationResult) {
	r := &result.Reasoning
	if opts.SkipAI || e.classifier == nil {
		r.AddStage("ai", "skipped", "")
		return
	}

	// Only offer categories the movement type can legally land in, so the
	// model cannot pick something the validator would reject anyway.
	allowed := make(map[model.CategoryType]bool)
	for _, t := range movement.AllowedCategoryTypes(mt) {
		allowed[t] = true
	}
	req := llm.ClassifyRequest{
		Description:  txn.Description,
		Memo:         txn.Memo,
		Amount:       txn.Amount,
		MovementType: string(mt),
	}
	for _, cat := range categories {
		if cat.IsActive && !cat.IsIgnored && allowed[cat.Type] {
			req.Categories = append(req.Categories, llm.CandidateCategory{Name: cat.Name, Type: string(cat.Type)})
		}
	}
	if len(req.Categories) == 0 {
		r.AddStage("ai", "rejected", "no candidate categories for movement type")
		return
	}

	var resp llm.ClassifyResponse
	err := common.WithRetry(ctx, func() error {
		cctx, cancel := context.WithTimeout(ctx, opts.AITimeout)
		defer cancel()
		var classifyErr error
		resp, classifyErr = e.classifier.Classify(cctx, req)
		return classifyErr
	}, service.RetryOptions{MaxAttempts: 2})
	if err != nil {
		// AI failures are never fatal; the transaction just goes to review.
		e.logger.Warn("ai classifier unavailable", "transaction_id", txn.ID, "error", err)
		r.AddStage("ai", "unavailable", fmt.Sprintf("%v: %v", common.ErrAIUnavailable, err))
		return
	}

	var cat *model.Category
	for id, c := range catByID {
		if strings.EqualFold(c.Name, resp.CategoryName) {
			cat = catByID[id]
			break
		}
	}
	if cat == nil {
		r.AddStage("ai", "rejected", fmt.Sprintf("unknown category %q", resp.CategoryName))
		return
	}
	if err := movement.Validate(txn.Amount, mt, cat); err != nil {
		r.AddStage("ai", "rejected", err.Error())
		return
	}
	if resp.Confidence < opts.ConfidenceThreshold {
		r.AddStage("ai", "below_threshold", fmt.Sprintf("%.0f < %.0f", resp.Confidence, opts.ConfidenceThreshold))
		return
	}

	r.AddStage("ai", "classified", resp.Reasoning)
	accept(result, cat.ID, cat.Name, resp.Confidence, model.SourceAI)

	if e.generator != nil && !opts.SkipAutoLearning && resp.Confidence >= AutoLearnConfidence {
		rule, genErr := e.generator.CreateFromClassification(ctx, txn, cat.ID, resp.Confidence)
		switch {
		case genErr != nil:
			e.logger.Warn("auto-learning failed", "transaction_id", txn.ID, "error", genErr)
		case rule != nil:
			e.logger.Info("generated candidate rule", "rule_id", rule.ID, "pattern", rule.Pattern)
			r.AddStage("auto_learning", "rule_created", rule.Pattern)
		}
	}
}
