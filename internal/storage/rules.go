package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

const ruleColumns = `id, company_id, category_id, pattern, rule_type, status, source_type,
	confidence_score, usage_count, validation_count, negative_count, is_active,
	last_used_at, last_validated_at, created_at, updated_at`

// GetRules returns a company's rules. With includeUntrusted false only
// rules eligible for automatic application come back: active flag set and
// status active, refined or consolidated.
func (s *SQLiteStorage) GetRules(ctx context.Context, companyID string, includeUntrusted bool) ([]model.CategoryRule, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getRules(ctx, s.db, companyID, includeUntrusted)
}

// GetRuleByID fetches one rule within a company.
func (s *SQLiteStorage) GetRuleByID(ctx context.Context, companyID, id string) (*model.CategoryRule, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getRuleByID(ctx, s.db, companyID, id)
}

// CreateRule persists a new rule.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return createRule(ctx, s.db, rule)
}

// UpdateRule rewrites a rule's mutable fields.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return updateRule(ctx, s.db, rule)
}

// IncrementRuleUsage bumps a rule's usage counter and stamps last use.
func (s *SQLiteStorage) IncrementRuleUsage(ctx context.Context, companyID, ruleID string, usedAt time.Time) error {
	if err := validateTenantArgs(ctx, companyID, ruleID, "ruleID"); err != nil {
		return err
	}
	return incrementRuleUsage(ctx, s.db, companyID, ruleID, usedAt)
}

// SaveRuleFeedback records one confirmation or correction of a rule.
func (s *SQLiteStorage) SaveRuleFeedback(ctx context.Context, feedback *model.RuleFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveRuleFeedback(ctx, s.db, feedback)
}

func getRules(ctx context.Context, q querier, companyID string, includeUntrusted bool) ([]model.CategoryRule, error) {
	query := fmt.Sprintf("SELECT %s FROM category_rules WHERE company_id = ?", ruleColumns)
	if !includeUntrusted {
		query += " AND is_active = 1 AND status IN ('active', 'refined', 'consolidated')"
	}
	query += " ORDER BY confidence_score DESC, usage_count DESC, created_at DESC"

	rows, err := q.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func getRuleByID(ctx context.Context, q querier, companyID, id string) (*model.CategoryRule, error) {
	query := fmt.Sprintf("SELECT %s FROM category_rules WHERE company_id = ? AND id = ?", ruleColumns)
	rule, err := scanRule(q.QueryRowContext(ctx, query, companyID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func createRule(ctx context.Context, q querier, rule *model.CategoryRule) error {
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	_, err := q.ExecContext(ctx,
		`INSERT INTO category_rules
			(id, company_id, category_id, pattern, rule_type, status, source_type,
			 confidence_score, usage_count, validation_count, negative_count, is_active,
			 last_used_at, last_validated_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.CompanyID, rule.CategoryID, rule.Pattern, string(rule.RuleType),
		string(rule.Status), string(rule.SourceType), rule.ConfidenceScore,
		rule.UsageCount, rule.ValidationCount, rule.NegativeCount, rule.IsActive,
		rule.LastUsedAt, rule.LastValidatedAt, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

func updateRule(ctx context.Context, q querier, rule *model.CategoryRule) error {
	res, err := q.ExecContext(ctx,
		`UPDATE category_rules SET
			category_id = ?, pattern = ?, rule_type = ?, status = ?, source_type = ?,
			confidence_score = ?, usage_count = ?, validation_count = ?, negative_count = ?,
			is_active = ?, last_used_at = ?, last_validated_at = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		rule.CategoryID, rule.Pattern, string(rule.RuleType), string(rule.Status),
		string(rule.SourceType), rule.ConfidenceScore, rule.UsageCount,
		rule.ValidationCount, rule.NegativeCount, rule.IsActive,
		rule.LastUsedAt, rule.LastValidatedAt, time.Now(),
		rule.CompanyID, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, rule.ID)
	}
	return nil
}

func incrementRuleUsage(ctx context.Context, q querier, companyID, ruleID string, usedAt time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE category_rules SET usage_count = usage_count + 1, last_used_at = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		usedAt, time.Now(), companyID, ruleID)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check usage update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, ruleID)
	}
	return nil
}

func saveRuleFeedback(ctx context.Context, q querier, feedback *model.RuleFeedback) error {
	if feedback == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if feedback.ID == "" || feedback.RuleID == "" || feedback.TransactionID == "" {
		return fmt.Errorf("%w: feedback needs id, rule and transaction", ErrNilParameter)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO rule_feedback (id, rule_id, transaction_id, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		feedback.ID, feedback.RuleID, feedback.TransactionID,
		string(feedback.Outcome), feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rule feedback: %w", err)
	}
	return nil
}

func scanRule(row rowScanner) (*model.CategoryRule, error) {
	var rule model.CategoryRule
	var ruleType, status, sourceType string
	var lastUsedAt, lastValidatedAt sql.NullTime

	err := row.Scan(&rule.ID, &rule.CompanyID, &rule.CategoryID, &rule.Pattern,
		&ruleType, &status, &sourceType, &rule.ConfidenceScore,
		&rule.UsageCount, &rule.ValidationCount, &rule.NegativeCount, &rule.IsActive,
		&lastUsedAt, &lastValidatedAt, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rule.RuleType = model.RuleType(ruleType)
	rule.Status = model.RuleStatus(status)
	rule.SourceType = model.RuleSource(sourceType)
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		rule.LastUsedAt = &t
	}
	if lastValidatedAt.Valid {
		t := lastValidatedAt.Time
		rule.LastValidatedAt = &t
	}
	return &rule, nil
}
