// Package storage provides the SQLite persistence layer for the dreflow
// engine. Every query is tenant-scoped: a company ID is part of each lookup
// and each mutation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fluxofin/dreflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidRule        = errors.New("invalid rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.CompanyID == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidTransaction)
	}
	if txn.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	return nil
}

// validateCategory validates a category before persistence.
func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if category.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCategory)
	}
	if category.CompanyID == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidCategory)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	switch category.Type {
	case model.CategoryTypeRevenue,
		model.CategoryTypeVariableCost,
		model.CategoryTypeFixedCost,
		model.CategoryTypeNonOperational,
		model.CategoryTypeTax,
		model.CategoryTypeTransfer:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, category.Type)
	}
	return nil
}

// validateRule validates a rule before persistence.
func validateRule(rule *model.CategoryRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRule)
	}
	if rule.CompanyID == "" {
		return fmt.Errorf("%w: missing company ID", ErrInvalidRule)
	}
	if rule.CategoryID == "" {
		return fmt.Errorf("%w: missing category ID", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		return fmt.Errorf("%w: missing pattern", ErrInvalidRule)
	}
	switch rule.RuleType {
	case model.RuleTypeExact, model.RuleTypeContains, model.RuleTypeRegex:
	default:
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, rule.RuleType)
	}
	switch rule.Status {
	case model.RuleStatusCandidate, model.RuleStatusActive, model.RuleStatusRefined,
		model.RuleStatusConsolidated, model.RuleStatusInactive:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRule, rule.Status)
	}
	if rule.ConfidenceScore < 0 || rule.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence score must be between 0 and 1", ErrInvalidRule)
	}
	return nil
}
