// Package reclassify applies a rule's category to historical transactions
// in bulk, with a preview step so no one moves thousands of rows blind.
package reclassify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/pattern"
	"github.com/fluxofin/dreflow/internal/service"
)

const sampleSize = 5

// Preview summarizes what an Execute call would touch.
type Preview struct {
	ByMonth       map[string]int
	Sample        []model.Transaction
	TotalAffected int
	AutomaticOnly int
	ManualOnly    int
}

// Job is the outcome of one executed reclassification.
type Job struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	ID             string
	RuleID         string
	NewCategoryID  string
	ProcessedCount int
	AffectedCount  int
	OnlyAutomatic  bool
}

// Service previews and executes bulk reclassifications.
type Service struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewService creates a reclassification service.
func NewService(storage service.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{storage: storage, logger: logger}
}

// PreviewRule reports which of the tenant's transactions the rule's pattern
// matches, split into automatically categorized rows and rows a human has
// verified or categorized by hand.
func (s *Service) PreviewRule(ctx context.Context, companyID, ruleID string, onlyAutomatic bool) (*Preview, error) {
	rule, txns, err := s.loadRuleAndTransactions(ctx, companyID, ruleID)
	if err != nil {
		return nil, err
	}

	matcher := probeMatcher(rule)
	preview := &Preview{ByMonth: make(map[string]int)}

	for i := range txns {
		txn := &txns[i]
		if !matches(ctx, matcher, txn) {
			continue
		}
		if isAutomatic(txn) {
			preview.AutomaticOnly++
		} else {
			preview.ManualOnly++
			if onlyAutomatic {
				continue
			}
		}
		preview.TotalAffected++
		preview.ByMonth[txn.Date.Format("2006-01")]++
		if len(preview.Sample) < sampleSize {
			preview.Sample = append(preview.Sample, *txn)
		}
	}

	return preview, nil
}

// Execute applies newCategoryID to every transaction the rule matches, in a
// single database transaction. Rows already carrying the target category
// are skipped, so running the same job twice changes nothing. With
// onlyAutomatic set, verified and manually categorized rows are left alone.
func (s *Service) Execute(ctx context.Context, companyID, ruleID, newCategoryID string, onlyAutomatic bool) (*Job, error) {
	if _, err := s.storage.GetCategoryByID(ctx, companyID, newCategoryID); err != nil {
		return nil, fmt.Errorf("target category: %w", err)
	}

	rule, txns, err := s.loadRuleAndTransactions(ctx, companyID, ruleID)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:            uuid.NewString(),
		RuleID:        ruleID,
		NewCategoryID: newCategoryID,
		OnlyAutomatic: onlyAutomatic,
		StartedAt:     time.Now(),
	}

	matcher := probeMatcher(rule)
	var ids []string
	for i := range txns {
		txn := &txns[i]
		if !matches(ctx, matcher, txn) {
			continue
		}
		job.ProcessedCount++
		if onlyAutomatic && !isAutomatic(txn) {
			continue
		}
		if txn.CategoryID != nil && *txn.CategoryID == newCategoryID {
			continue
		}
		ids = append(ids, txn.ID)
	}

	if len(ids) > 0 {
		reasoning := model.Reasoning{
			Source:  model.SourceRule,
			RuleID:  ruleID,
			Summary: fmt.Sprintf("reclassified by job %s", job.ID),
		}

		tx, err := s.storage.BeginTx(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		affected, err := tx.BulkUpdateCategory(ctx, companyID, ids, newCategoryID, reasoning.JSON())
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("bulk update failed: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit reclassification: %w", err)
		}
		job.AffectedCount = affected
	}

	job.FinishedAt = time.Now()
	s.logger.Info("reclassification complete",
		"job_id", job.ID,
		"rule_id", ruleID,
		"company_id", companyID,
		"processed", job.ProcessedCount,
		"affected", job.AffectedCount,
		"only_automatic", onlyAutomatic)
	return job, nil
}

func (s *Service) loadRuleAndTransactions(ctx context.Context, companyID, ruleID string) (*model.CategoryRule, []model.Transaction, error) {
	if companyID == "" || ruleID == "" {
		return nil, nil, fmt.Errorf("%w: company and rule IDs are required", common.ErrValidation)
	}

	rule, err := s.storage.GetRuleByID(ctx, companyID, ruleID)
	if err != nil {
		return nil, nil, err
	}

	txns, err := s.storage.GetTransactions(ctx, service.TransactionFilter{CompanyID: companyID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return rule, txns, nil
}

// probeMatcher builds a matcher that evaluates the rule's pattern even when
// the rule itself is still a candidate; previewing untrusted rules is the
// whole point.
func probeMatcher(rule *model.CategoryRule) *pattern.MatcherImpl {
	probe := *rule
	probe.Status = model.RuleStatusActive
	probe.IsActive = true
	return pattern.NewMatcher([]model.CategoryRule{probe})
}

func matches(ctx context.Context, m *pattern.MatcherImpl, txn *model.Transaction) bool {
	found, err := m.Match(ctx, *txn)
	return err == nil && len(found) > 0
}

func isAutomatic(txn *model.Transaction) bool {
	return !txn.Verified && !txn.ManuallyCategorized
}
