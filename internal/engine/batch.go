package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/service"
)

// CategorizeUpload runs every pending transaction of an upload through the
// waterfall. A second call for an upload still in flight is refused, so two
// workers can never double-process the same batch.
func (e *Engine) CategorizeUpload(ctx context.Context, companyID, uploadID string, opts Options) (*service.CompletionStats, error) {
	if companyID == "" || uploadID == "" {
		return nil, fmt.Errorf("%w: company and upload IDs are required", common.ErrValidation)
	}

	if !e.registry.Acquire(uploadID) {
		return nil, fmt.Errorf("%w: upload %s is already being processed", common.ErrDuplicateEntry, uploadID)
	}
	defer e.registry.Release(uploadID)

	upload, err := e.storage.GetUpload(ctx, companyID, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}

	if err := e.storage.UpdateUploadStatus(ctx, companyID, uploadID, model.UploadProcessing, upload.CategorizedCount); err != nil {
		return nil, fmt.Errorf("failed to mark upload processing: %w", err)
	}

	txns, err := e.storage.GetTransactionsToClassify(ctx, companyID, uploadID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending transactions: %w", err)
	}

	start := time.Now()
	stats := &service.CompletionStats{TotalTransactions: len(txns)}

	for i := range txns {
		if ctx.Err() != nil {
			break
		}

		result, catErr := e.Categorize(ctx, &txns[i], opts)
		if catErr != nil {
			e.logger.Error("categorization failed",
				"transaction_id", txns[i].ID,
				"error", catErr)
			stats.NeedsReview++
			continue
		}

		switch {
		case result.NeedsReview:
			stats.NeedsReview++
		case result.Source == model.SourceCache:
			stats.FromCache++
		case result.Source == model.SourceRule:
			stats.FromRules++
		case result.Source == model.SourceHistory:
			stats.FromHistory++
		case result.Source == model.SourceAI:
			stats.FromAI++
		}
		for _, stage := range result.Reasoning.Stages {
			if stage.Stage == "auto_learning" && stage.Outcome == "rule_created" {
				stats.RulesGenerated++
			}
		}
	}

	stats.Duration = time.Since(start)
	categorized := stats.TotalTransactions - stats.NeedsReview

	status := model.UploadCompleted
	if err := ctx.Err(); err != nil {
		status = model.UploadFailed
	}
	if err := e.storage.UpdateUploadStatus(ctx, companyID, uploadID, status, upload.CategorizedCount+categorized); err != nil {
		e.logger.Error("failed to finalize upload status", "upload_id", uploadID, "error", err)
	}

	e.logger.Info("upload categorized",
		"upload_id", uploadID,
		"total", stats.TotalTransactions,
		"from_cache", stats.FromCache,
		"from_rules", stats.FromRules,
		"from_history", stats.FromHistory,
		"from_ai", stats.FromAI,
		"needs_review", stats.NeedsReview,
		"duration", stats.Duration)

	return stats, nil
}
