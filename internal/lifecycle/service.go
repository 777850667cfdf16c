// Package lifecycle manages the promotion, demotion and health of
// categorization rules.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/service"
)

// Config tunes the lifecycle thresholds.
type Config struct {
	PromotionThreshold    int
	RefinedThreshold      int
	ConsolidatedThreshold int
	MinimumUsage          int
	RefinedPrecision      float64
	ConsolidatedPrecision float64
	NegativeRatioLimit    float64
	MinHealth             float64
	MinPrecision          float64
	ObsoleteAfter         time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		PromotionThreshold:    3,
		RefinedThreshold:      10,
		ConsolidatedThreshold: 25,
		MinimumUsage:          5,
		RefinedPrecision:      0.9,
		ConsolidatedPrecision: 0.95,
		NegativeRatioLimit:    2.0,
		MinHealth:             0.3,
		MinPrecision:          0.4,
		ObsoleteAfter:         90 * 24 * time.Hour,
	}
}

// validTransitions is the full status graph. Anything not listed here is
// rejected; a candidate cannot jump straight to consolidated.
var validTransitions = map[model.RuleStatus][]model.RuleStatus{
	model.RuleStatusCandidate:    {model.RuleStatusActive, model.RuleStatusInactive},
	model.RuleStatusActive:       {model.RuleStatusRefined, model.RuleStatusInactive},
	model.RuleStatusRefined:      {model.RuleStatusConsolidated, model.RuleStatusInactive},
	model.RuleStatusConsolidated: {model.RuleStatusInactive},
	model.RuleStatusInactive:     {model.RuleStatusActive},
}

// CanTransition reports whether a status change is allowed.
func CanTransition(from, to model.RuleStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Service applies lifecycle decisions to stored rules.
type Service struct {
	storage service.Storage
	logger  *slog.Logger
	cfg     Config
}

// NewService creates a lifecycle service.
func NewService(storage service.Storage, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{storage: storage, cfg: cfg, logger: logger}
}

// Transition moves a rule to a new status, enforcing the transition table.
func (s *Service) Transition(ctx context.Context, companyID, ruleID string, to model.RuleStatus) error {
	rule, err := s.storage.GetRuleByID(ctx, companyID, ruleID)
	if err != nil {
		return err
	}
	return s.transition(ctx, s.storage, rule, to)
}

func (s *Service) transition(ctx context.Context, store service.Storage, rule *model.CategoryRule, to model.RuleStatus) error {
	if !CanTransition(rule.Status, to) {
		return fmt.Errorf("%w: rule %s cannot move from %s to %s", common.ErrValidation, rule.ID, rule.Status, to)
	}

	from := rule.Status
	rule.Status = to
	rule.IsActive = to != model.RuleStatusInactive
	rule.UpdatedAt = time.Now()

	if err := store.UpdateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to persist rule transition: %w", err)
	}

	s.logger.Info("rule status changed",
		"rule_id", rule.ID,
		"company_id", rule.CompanyID,
		"from", from,
		"to", to)
	return nil
}

// RecordPositiveUse registers a confirmed rule application and promotes the
// rule when it has earned it. Counter, feedback row and any status change
// commit together or not at all.
func (s *Service) RecordPositiveUse(ctx context.Context, companyID, ruleID, transactionID string) error {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.recordPositiveUse(ctx, tx, companyID, ruleID, transactionID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit positive use: %w", err)
	}
	return nil
}

func (s *Service) recordPositiveUse(ctx context.Context, store service.Storage, companyID, ruleID, transactionID string) error {
	rule, err := store.GetRuleByID(ctx, companyID, ruleID)
	if err != nil {
		return err
	}

	now := time.Now()
	rule.ValidationCount++
	rule.LastValidatedAt = &now
	rule.UpdatedAt = now

	if err := store.UpdateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to record positive use: %w", err)
	}
	if err := s.saveFeedback(ctx, store, rule.ID, transactionID, model.FeedbackPositive); err != nil {
		return err
	}

	if next, ok := s.promotionTarget(rule); ok {
		return s.transition(ctx, store, rule, next)
	}
	return nil
}

// RecordNegativeUse registers a corrected rule application and demotes the
// rule when its error ratio crosses the limit. Runs in a single transaction
// like RecordPositiveUse.
func (s *Service) RecordNegativeUse(ctx context.Context, companyID, ruleID, transactionID string) error {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.recordNegativeUse(ctx, tx, companyID, ruleID, transactionID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit negative use: %w", err)
	}
	return nil
}

func (s *Service) recordNegativeUse(ctx context.Context, store service.Storage, companyID, ruleID, transactionID string) error {
	rule, err := store.GetRuleByID(ctx, companyID, ruleID)
	if err != nil {
		return err
	}

	rule.NegativeCount++
	rule.UpdatedAt = time.Now()

	if err := store.UpdateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to record negative use: %w", err)
	}
	if err := s.saveFeedback(ctx, store, rule.ID, transactionID, model.FeedbackNegative); err != nil {
		return err
	}

	if s.shouldDeactivate(rule) && rule.Status != model.RuleStatusInactive {
		return s.transition(ctx, store, rule, model.RuleStatusInactive)
	}
	return nil
}

func (s *Service) saveFeedback(ctx context.Context, store service.Storage, ruleID, transactionID string, outcome model.FeedbackOutcome) error {
	fb := &model.RuleFeedback{
		ID:            uuid.NewString(),
		RuleID:        ruleID,
		TransactionID: transactionID,
		Outcome:       outcome,
		CreatedAt:     time.Now(),
	}
	if err := store.SaveRuleFeedback(ctx, fb); err != nil {
		return fmt.Errorf("failed to save rule feedback: %w", err)
	}
	return nil
}

// promotionTarget returns the next status the rule qualifies for, if any.
func (s *Service) promotionTarget(rule *model.CategoryRule) (model.RuleStatus, bool) {
	switch rule.Status {
	case model.RuleStatusCandidate:
		if rule.ValidationCount >= s.cfg.PromotionThreshold && !s.shouldDeactivate(rule) {
			return model.RuleStatusActive, true
		}
	case model.RuleStatusActive:
		if rule.ValidationCount >= s.cfg.RefinedThreshold && rule.Precision() >= s.cfg.RefinedPrecision {
			return model.RuleStatusRefined, true
		}
	case model.RuleStatusRefined:
		if rule.ValidationCount >= s.cfg.ConsolidatedThreshold && rule.Precision() >= s.cfg.ConsolidatedPrecision {
			return model.RuleStatusConsolidated, true
		}
	}
	return "", false
}

// shouldDeactivate applies the negative-ratio limit. One validated use is
// assumed when there are none yet, so a freshly corrected rule can still
// trip the limit.
func (s *Service) shouldDeactivate(rule *model.CategoryRule) bool {
	validations := rule.ValidationCount
	if validations == 0 {
		validations = 1
	}
	return float64(rule.NegativeCount)/float64(validations) >= s.cfg.NegativeRatioLimit
}

// Health scores a rule from 0 to 1 combining precision, usage volume and
// recency of use.
func (s *Service) Health(rule *model.CategoryRule, now time.Time) float64 {
	precision := rule.Precision()

	usage := math.Min(float64(rule.UsageCount)/50, 1)

	recency := 0.0
	if rule.LastUsedAt != nil {
		age := now.Sub(*rule.LastUsedAt)
		recency = 1 - float64(age)/float64(s.cfg.ObsoleteAfter)
		recency = math.Max(0, math.Min(1, recency))
	}

	return precision*0.5 + usage*0.3 + recency*0.2
}

// MaintenanceReport summarizes one maintenance pass.
type MaintenanceReport struct {
	RulesChecked int
	Deactivated  int
	Expired      int
}

// Maintain deactivates low-performing and long-unused rules for a company.
func (s *Service) Maintain(ctx context.Context, companyID string) (*MaintenanceReport, error) {
	rules, err := s.storage.GetRules(ctx, companyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	now := time.Now()
	report := &MaintenanceReport{}

	for i := range rules {
		rule := &rules[i]
		if rule.Status == model.RuleStatusInactive {
			continue
		}
		report.RulesChecked++

		if rule.LastUsedAt != nil && now.Sub(*rule.LastUsedAt) > s.cfg.ObsoleteAfter {
			if err := s.transition(ctx, s.storage, rule, model.RuleStatusInactive); err != nil {
				return nil, err
			}
			report.Expired++
			continue
		}

		if rule.UsageCount < s.cfg.MinimumUsage {
			continue
		}
		if s.Health(rule, now) < s.cfg.MinHealth || rule.Precision() < s.cfg.MinPrecision {
			if err := s.transition(ctx, s.storage, rule, model.RuleStatusInactive); err != nil {
				return nil, err
			}
			report.Deactivated++
		}
	}

	s.logger.Info("rule maintenance complete",
		"company_id", companyID,
		"checked", report.RulesChecked,
		"deactivated", report.Deactivated,
		"expired", report.Expired)
	return report, nil
}
