// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/fluxofin/dreflow/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// CompanyID is mandatory; every query is tenant-scoped.
type TransactionFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	CompanyID      string
	UploadID       string
	CategoryID     string
	OnlyPending    bool
	OnlyClassified bool
	Limit          int
	Offset         int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, companyID, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionsToClassify(ctx context.Context, companyID, uploadID string, limit int) ([]model.Transaction, error)
	GetClassifiedSince(ctx context.Context, companyID string, since time.Time, limit int) ([]model.Transaction, error)
	UpdateTransactionCategorization(ctx context.Context, companyID, transactionID string, result *model.ClassificationResult) error
	BulkUpdateCategory(ctx context.Context, companyID string, transactionIDs []string, categoryID, reasoning string) (int, error)

	// Split operations
	CreateSplit(ctx context.Context, split *model.TransactionSplit) error
	GetSplitsByTransactionIDs(ctx context.Context, companyID string, transactionIDs []string) (map[string][]model.TransactionSplit, error)

	// Category operations
	GetCategories(ctx context.Context, companyID string) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, companyID, id string) (*model.Category, error)
	GetCategoryByName(ctx context.Context, companyID, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, category *model.Category) error

	// Rule operations
	GetRules(ctx context.Context, companyID string, includeUntrusted bool) ([]model.CategoryRule, error)
	GetRuleByID(ctx context.Context, companyID, id string) (*model.CategoryRule, error)
	CreateRule(ctx context.Context, rule *model.CategoryRule) error
	UpdateRule(ctx context.Context, rule *model.CategoryRule) error
	IncrementRuleUsage(ctx context.Context, companyID, ruleID string, usedAt time.Time) error
	SaveRuleFeedback(ctx context.Context, feedback *model.RuleFeedback) error

	// Company, account and upload operations
	CreateCompany(ctx context.Context, company *model.Company) error
	GetCompanyByID(ctx context.Context, id string) (*model.Company, error)
	CreateAccount(ctx context.Context, account *model.Account) error
	CreateUpload(ctx context.Context, upload *model.Upload) error
	GetUpload(ctx context.Context, companyID, id string) (*model.Upload, error)
	UpdateUploadStatus(ctx context.Context, companyID, id string, status model.UploadStatus, categorizedCount int) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// CompletionStats shows the results of a categorization run.
type CompletionStats struct {
	Duration          time.Duration
	TotalTransactions int
	FromCache         int
	FromRules         int
	FromHistory       int
	FromAI            int
	NeedsReview       int
	RulesGenerated    int
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
