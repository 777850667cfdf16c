package model

import "time"

// RuleType determines how a rule pattern is compared against transaction text.
type RuleType string

// Rule type constants.
const (
	RuleTypeExact    RuleType = "exact"
	RuleTypeContains RuleType = "contains"
	RuleTypeRegex    RuleType = "regex"
)

// RuleStatus is the lifecycle stage of a categorization rule.
type RuleStatus string

// Rule status constants. Candidate rules exist but are never applied
// automatically; they must earn promotion through validated use.
const (
	RuleStatusCandidate    RuleStatus = "candidate"
	RuleStatusActive       RuleStatus = "active"
	RuleStatusRefined      RuleStatus = "refined"
	RuleStatusConsolidated RuleStatus = "consolidated"
	RuleStatusInactive     RuleStatus = "inactive"
)

// RuleSource records where a rule came from.
type RuleSource string

// Rule source constants.
const (
	RuleSourceManual      RuleSource = "manual"
	RuleSourceAIGenerated RuleSource = "ai_generated"
	RuleSourceImported    RuleSource = "imported"
)

// CategoryRule maps a text pattern to a category for one tenant.
type CategoryRule struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastUsedAt      *time.Time
	LastValidatedAt *time.Time
	ID              string
	CompanyID       string
	CategoryID      string
	Pattern         string
	RuleType        RuleType
	Status          RuleStatus
	SourceType      RuleSource
	ConfidenceScore float64 // 0-1
	UsageCount      int
	ValidationCount int
	NegativeCount   int
	IsActive        bool
}

// Trusted reports whether the rule may be applied automatically. Candidate
// and inactive rules never match regardless of their confidence.
func (r *CategoryRule) Trusted() bool {
	if !r.IsActive {
		return false
	}
	switch r.Status {
	case RuleStatusActive, RuleStatusRefined, RuleStatusConsolidated:
		return true
	default:
		return false
	}
}

// Precision is the share of validated uses among all recorded feedback.
func (r *CategoryRule) Precision() float64 {
	total := r.ValidationCount + r.NegativeCount
	if total == 0 {
		return 0
	}
	return float64(r.ValidationCount) / float64(total)
}

// FeedbackOutcome records whether a rule application was confirmed or corrected.
type FeedbackOutcome string

// Feedback outcome constants.
const (
	FeedbackPositive FeedbackOutcome = "positive"
	FeedbackNegative FeedbackOutcome = "negative"
)

// RuleFeedback is one observation of a rule being right or wrong on a
// specific transaction.
type RuleFeedback struct {
	CreatedAt     time.Time
	ID            string
	RuleID        string
	TransactionID string
	Outcome       FeedbackOutcome
}
