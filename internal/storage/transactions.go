package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/service"
)

const transactionColumns = `id, company_id, account_id, upload_id, hash, date, description,
	name, memo, amount, type, category_id, confidence, source, movement_type,
	rule_id, reasoning, needs_review, verified, manually_categorized, categorized_at`

// SaveTransactions inserts transactions, ignoring rows whose hash already
// exists for the company.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return saveTransactions(ctx, s.db, transactions)
}

// GetTransactionByID fetches one transaction within a company.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, companyID, id string) (*model.Transaction, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, s.db, companyID, id)
}

// GetTransactions fetches transactions matching the filter.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateTenantArgs(ctx, filter.CompanyID, "-", ""); err != nil {
		return nil, err
	}
	return getTransactions(ctx, s.db, filter)
}

// GetTransactionsToClassify fetches uncategorized transactions, optionally
// limited to one upload.
func (s *SQLiteStorage) GetTransactionsToClassify(ctx context.Context, companyID, uploadID string, limit int) ([]model.Transaction, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getTransactionsToClassify(ctx, s.db, companyID, uploadID, limit)
}

// GetClassifiedSince fetches recently categorized transactions for history
// matching.
func (s *SQLiteStorage) GetClassifiedSince(ctx context.Context, companyID string, since time.Time, limit int) ([]model.Transaction, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getClassifiedSince(ctx, s.db, companyID, since, limit)
}

// UpdateTransactionCategorization writes a waterfall result back to the row.
func (s *SQLiteStorage) UpdateTransactionCategorization(ctx context.Context, companyID, transactionID string, result *model.ClassificationResult) error {
	if err := validateTenantArgs(ctx, companyID, transactionID, "transactionID"); err != nil {
		return err
	}
	return updateTransactionCategorization(ctx, s.db, companyID, transactionID, result)
}

// BulkUpdateCategory recategorizes a set of transactions in one statement.
func (s *SQLiteStorage) BulkUpdateCategory(ctx context.Context, companyID string, transactionIDs []string, categoryID, reasoning string) (int, error) {
	if err := validateTenantArgs(ctx, companyID, categoryID, "categoryID"); err != nil {
		return 0, err
	}
	return bulkUpdateCategory(ctx, s.db, companyID, transactionIDs, categoryID, reasoning)
}

// CreateSplit persists one transaction split.
func (s *SQLiteStorage) CreateSplit(ctx context.Context, split *model.TransactionSplit) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createSplit(ctx, s.db, split)
}

// GetSplitsByTransactionIDs fetches splits for a set of transactions,
// grouped by transaction ID. Split rows are joined through their parent
// transaction so one tenant can never read another tenant's splits.
func (s *SQLiteStorage) GetSplitsByTransactionIDs(ctx context.Context, companyID string, transactionIDs []string) (map[string][]model.TransactionSplit, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getSplitsByTransactionIDs(ctx, s.db, companyID, transactionIDs)
}

func saveTransactions(ctx context.Context, q querier, transactions []model.Transaction) error {
	query := `INSERT OR IGNORE INTO transactions
		(id, company_id, account_id, upload_id, hash, date, description, name, memo,
		 amount, type, category_id, confidence, source, movement_type, rule_id,
		 reasoning, needs_review, verified, manually_categorized, categorized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		_, err := q.ExecContext(ctx, query,
			txn.ID, txn.CompanyID, txn.AccountID, nullString(txn.UploadID), txn.Hash,
			txn.Date, txn.Description, nullString(txn.Name), nullString(txn.Memo),
			txn.Amount, string(txn.Type), txn.CategoryID, txn.Confidence,
			nullString(string(txn.Source)), nullString(string(txn.MovementType)),
			nullString(txn.RuleID), nullString(txn.Reasoning),
			txn.NeedsReview, txn.Verified, txn.ManuallyCategorized, txn.CategorizedAt)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}
	return nil
}

func getTransactionByID(ctx context.Context, q querier, companyID, id string) (*model.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE company_id = ? AND id = ?", transactionColumns)
	row := q.QueryRowContext(ctx, query, companyID, id)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func getTransactions(ctx context.Context, q querier, filter service.TransactionFilter) ([]model.Transaction, error) {
	var conditions []string
	var args []any

	conditions = append(conditions, "company_id = ?")
	args = append(args, filter.CompanyID)

	if filter.UploadID != "" {
		conditions = append(conditions, "upload_id = ?")
		args = append(args, filter.UploadID)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date < ?")
		args = append(args, *filter.EndDate)
	}
	if filter.OnlyPending {
		conditions = append(conditions, "category_id IS NULL")
	}
	if filter.OnlyClassified {
		conditions = append(conditions, "category_id IS NOT NULL")
	}

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY date, id",
		transactionColumns, strings.Join(conditions, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func getTransactionsToClassify(ctx context.Context, q querier, companyID, uploadID string, limit int) ([]model.Transaction, error) {
	filter := service.TransactionFilter{
		CompanyID:   companyID,
		UploadID:    uploadID,
		OnlyPending: true,
		Limit:       limit,
	}
	return getTransactions(ctx, q, filter)
}

func getClassifiedSince(ctx context.Context, q querier, companyID string, since time.Time, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s FROM transactions
		WHERE company_id = ? AND category_id IS NOT NULL AND categorized_at >= ?
		ORDER BY categorized_at DESC LIMIT %d`, transactionColumns, limit)

	rows, err := q.QueryContext(ctx, query, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query classification history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func updateTransactionCategorization(ctx context.Context, q querier, companyID, transactionID string, result *model.ClassificationResult) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}

	res, err := q.ExecContext(ctx, `UPDATE transactions SET
			category_id = ?, confidence = ?, source = ?, movement_type = ?,
			rule_id = ?, reasoning = ?, needs_review = ?, categorized_at = ?
		WHERE company_id = ? AND id = ?`,
		result.CategoryID, result.Confidence, nullString(string(result.Source)),
		nullString(string(result.MovementType)), nullString(result.RuleID),
		result.Reasoning.JSON(), result.NeedsReview, result.ClassifiedAt,
		companyID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to update categorization: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
	}
	return nil
}

func bulkUpdateCategory(ctx context.Context, q querier, companyID string, transactionIDs []string, categoryID, reasoning string) (int, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(transactionIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(transactionIDs)+4)
	args = append(args, categoryID, reasoning, time.Now(), companyID)
	for _, id := range transactionIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`UPDATE transactions SET
			category_id = ?, source = 'rule', reasoning = ?, needs_review = 0, categorized_at = ?
		WHERE company_id = ? AND id IN (%s)`, placeholders)

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update categories: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check bulk update result: %w", err)
	}
	return int(affected), nil
}

func createSplit(ctx context.Context, q querier, split *model.TransactionSplit) error {
	if split == nil {
		return fmt.Errorf("%w: split", ErrNilParameter)
	}
	if split.ID == "" || split.TransactionID == "" || split.CategoryID == "" {
		return fmt.Errorf("%w: split needs id, transaction and category", ErrNilParameter)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO transaction_splits (id, transaction_id, category_id, amount, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		split.ID, split.TransactionID, split.CategoryID, split.Amount,
		nullString(split.Note), time.Now())
	if err != nil {
		return fmt.Errorf("failed to create split: %w", err)
	}
	return nil
}

func getSplitsByTransactionIDs(ctx context.Context, q querier, companyID string, transactionIDs []string) (map[string][]model.TransactionSplit, error) {
	result := make(map[string][]model.TransactionSplit)
	if len(transactionIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(transactionIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(transactionIDs)+1)
	args = append(args, companyID)
	for _, id := range transactionIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`SELECT s.id, s.transaction_id, s.category_id, s.amount, s.note, s.created_at
		FROM transaction_splits s
		JOIN transactions t ON t.id = s.transaction_id
		WHERE t.company_id = ? AND s.transaction_id IN (%s)
		ORDER BY s.created_at`, placeholders)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sp model.TransactionSplit
		var note sql.NullString
		if err := rows.Scan(&sp.ID, &sp.TransactionID, &sp.CategoryID, &sp.Amount, &note, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		sp.Note = note.String
		result[sp.TransactionID] = append(result[sp.TransactionID], sp)
	}
	return result, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var uploadID, name, memo, categoryID, source, movementType, ruleID, reasoning sql.NullString
	var txnType string
	var categorizedAt sql.NullTime

	err := row.Scan(&txn.ID, &txn.CompanyID, &txn.AccountID, &uploadID, &txn.Hash,
		&txn.Date, &txn.Description, &name, &memo, &txn.Amount, &txnType,
		&categoryID, &txn.Confidence, &source, &movementType, &ruleID, &reasoning,
		&txn.NeedsReview, &txn.Verified, &txn.ManuallyCategorized, &categorizedAt)
	if err != nil {
		return nil, err
	}

	txn.UploadID = uploadID.String
	txn.Name = name.String
	txn.Memo = memo.String
	txn.Type = model.TransactionType(txnType)
	txn.Source = model.ClassificationSource(source.String)
	txn.MovementType = model.MovementType(movementType.String)
	txn.RuleID = ruleID.String
	txn.Reasoning = reasoning.String
	if categoryID.Valid {
		id := categoryID.String
		txn.CategoryID = &id
	}
	if categorizedAt.Valid {
		at := categorizedAt.Time
		txn.CategorizedAt = &at
	}
	return &txn, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
