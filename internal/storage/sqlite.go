package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// querier abstracts *sql.DB and *sql.Tx so every query helper works both
// standalone and inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction. Every
// method delegates to the shared query helpers with the transaction as the
// querier.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return saveTransactions(ctx, t.tx, transactions)
}

func (t *sqliteTransaction) GetTransactionByID(ctx context.Context, companyID, id string) (*model.Transaction, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, t.tx, companyID, id)
}

func (t *sqliteTransaction) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateTenantArgs(ctx, filter.CompanyID, "-", ""); err != nil {
		return nil, err
	}
	return getTransactions(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetTransactionsToClassify(ctx context.Context, companyID, uploadID string, limit int) ([]model.Transaction, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getTransactionsToClassify(ctx, t.tx, companyID, uploadID, limit)
}

func (t *sqliteTransaction) GetClassifiedSince(ctx context.Context, companyID string, since time.Time, limit int) ([]model.Transaction, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getClassifiedSince(ctx, t.tx, companyID, since, limit)
}

func (t *sqliteTransaction) UpdateTransactionCategorization(ctx context.Context, companyID, transactionID string, result *model.ClassificationResult) error {
	if err := validateTenantArgs(ctx, companyID, transactionID, "transactionID"); err != nil {
		return err
	}
	return updateTransactionCategorization(ctx, t.tx, companyID, transactionID, result)
}

func (t *sqliteTransaction) BulkUpdateCategory(ctx context.Context, companyID string, transactionIDs []string, categoryID, reasoning string) (int, error) {
	if err := validateTenantArgs(ctx, companyID, categoryID, "categoryID"); err != nil {
		return 0, err
	}
	return bulkUpdateCategory(ctx, t.tx, companyID, transactionIDs, categoryID, reasoning)
}

func (t *sqliteTransaction) CreateSplit(ctx context.Context, split *model.TransactionSplit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createSplit(ctx, t.tx, split)
}

func (t *sqliteTransaction) GetSplitsByTransactionIDs(ctx context.Context, companyID string, transactionIDs []string) (map[string][]model.TransactionSplit, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getSplitsByTransactionIDs(ctx, t.tx, companyID, transactionIDs)
}

func (t *sqliteTransaction) GetCategories(ctx context.Context, companyID string) ([]model.Category, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getCategories(ctx, t.tx, companyID)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, companyID, id string) (*model.Category, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getCategoryByID(ctx, t.tx, companyID, id)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, companyID, name string) (*model.Category, error) {
	if err := validateTenantArgs(ctx, companyID, name, "name"); err != nil {
		return nil, err
	}
	return getCategoryByName(ctx, t.tx, companyID, name)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return createCategory(ctx, t.tx, category)
}

func (t *sqliteTransaction) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return updateCategory(ctx, t.tx, category)
}

func (t *sqliteTransaction) GetRules(ctx context.Context, companyID string, includeUntrusted bool) ([]model.CategoryRule, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getRules(ctx, t.tx, companyID, includeUntrusted)
}

func (t *sqliteTransaction) GetRuleByID(ctx context.Context, companyID, id string) (*model.CategoryRule, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getRuleByID(ctx, t.tx, companyID, id)
}

func (t *sqliteTransaction) CreateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return createRule(ctx, t.tx, rule)
}

func (t *sqliteTransaction) UpdateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return updateRule(ctx, t.tx, rule)
}

func (t *sqliteTransaction) IncrementRuleUsage(ctx context.Context, companyID, ruleID string, usedAt time.Time) error {
	if err := validateTenantArgs(ctx, companyID, ruleID, "ruleID"); err != nil {
		return err
	}
	return incrementRuleUsage(ctx, t.tx, companyID, ruleID, usedAt)
}

func (t *sqliteTransaction) SaveRuleFeedback(ctx context.Context, feedback *model.RuleFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveRuleFeedback(ctx, t.tx, feedback)
}

func (t *sqliteTransaction) CreateCompany(ctx context.Context, company *model.Company) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createCompany(ctx, t.tx, company)
}

func (t *sqliteTransaction) GetCompanyByID(ctx context.Context, id string) (*model.Company, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getCompanyByID(ctx, t.tx, id)
}

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createAccount(ctx, t.tx, account)
}

func (t *sqliteTransaction) CreateUpload(ctx context.Context, upload *model.Upload) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createUpload(ctx, t.tx, upload)
}

func (t *sqliteTransaction) GetUpload(ctx context.Context, companyID, id string) (*model.Upload, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getUpload(ctx, t.tx, companyID, id)
}

func (t *sqliteTransaction) UpdateUploadStatus(ctx context.Context, companyID, id string, status model.UploadStatus, categorizedCount int) error {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return err
	}
	return updateUploadStatus(ctx, t.tx, companyID, id, status, categorizedCount)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// validateTenantArgs checks the context, the company ID and one more named
// string argument. Pass "-" to skip the extra argument.
func validateTenantArgs(ctx context.Context, companyID, arg, argName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return err
	}
	if arg != "-" {
		if err := validateString(arg, argName); err != nil {
			return err
		}
	}
	return nil
}
