package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

// CreateCompany registers a new tenant.
func (s *SQLiteStorage) CreateCompany(ctx context.Context, company *model.Company) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if company == nil {
		return fmt.Errorf("%w: company", ErrNilParameter)
	}
	if err := validateString(company.ID, "company.ID"); err != nil {
		return err
	}
	if err := validateString(company.Name, "company.Name"); err != nil {
		return err
	}
	return createCompany(ctx, s.db, company)
}

// GetCompanyByID fetches one company.
func (s *SQLiteStorage) GetCompanyByID(ctx context.Context, id string) (*model.Company, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getCompanyByID(ctx, s.db, id)
}

// CreateAccount registers a bank account under a company.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateString(account.ID, "account.ID"); err != nil {
		return err
	}
	if err := validateString(account.CompanyID, "account.CompanyID"); err != nil {
		return err
	}
	return createAccount(ctx, s.db, account)
}

// CreateUpload records a new statement import batch.
func (s *SQLiteStorage) CreateUpload(ctx context.Context, upload *model.Upload) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if upload == nil {
		return fmt.Errorf("%w: upload", ErrNilParameter)
	}
	if err := validateString(upload.ID, "upload.ID"); err != nil {
		return err
	}
	if err := validateString(upload.CompanyID, "upload.CompanyID"); err != nil {
		return err
	}
	return createUpload(ctx, s.db, upload)
}

// GetUpload fetches one upload within a company.
func (s *SQLiteStorage) GetUpload(ctx context.Context, companyID, id string) (*model.Upload, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getUpload(ctx, s.db, companyID, id)
}

// UpdateUploadStatus advances an upload through its processing states.
// Reaching completed stamps completed_at.
func (s *SQLiteStorage) UpdateUploadStatus(ctx context.Context, companyID, id string, status model.UploadStatus, categorizedCount int) error {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return err
	}
	return updateUploadStatus(ctx, s.db, companyID, id, status, categorizedCount)
}

func createCompany(ctx context.Context, q querier, company *model.Company) error {
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO companies (id, name, tax_id, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		company.ID, company.Name, company.TaxID, company.IsActive, company.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func getCompanyByID(ctx context.Context, q querier, id string) (*model.Company, error) {
	var company model.Company
	err := q.QueryRowContext(ctx,
		`SELECT id, name, tax_id, is_active, created_at FROM companies WHERE id = ?`, id).
		Scan(&company.ID, &company.Name, &company.TaxID, &company.IsActive, &company.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: company %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func createAccount(ctx context.Context, q querier, account *model.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, company_id, name, bank_code, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.CompanyID, account.Name, account.BankCode,
		account.IsActive, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func createUpload(ctx context.Context, q querier, upload *model.Upload) error {
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now()
	}
	if upload.Status == "" {
		upload.Status = model.UploadPending
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO uploads
			(id, company_id, account_id, file_hash, status, transaction_count, categorized_count, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.ID, upload.CompanyID, upload.AccountID, upload.FileHash,
		string(upload.Status), upload.TransactionCount, upload.CategorizedCount,
		upload.CreatedAt, upload.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

func getUpload(ctx context.Context, q querier, companyID, id string) (*model.Upload, error) {
	var upload model.Upload
	var status string
	var completedAt sql.NullTime

	err := q.QueryRowContext(ctx,
		`SELECT id, company_id, account_id, file_hash, status, transaction_count,
			categorized_count, created_at, completed_at
		 FROM uploads WHERE company_id = ? AND id = ?`, companyID, id).
		Scan(&upload.ID, &upload.CompanyID, &upload.AccountID, &upload.FileHash,
			&status, &upload.TransactionCount, &upload.CategorizedCount,
			&upload.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: upload %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	upload.Status = model.UploadStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		upload.CompletedAt = &t
	}
	return &upload, nil
}

func updateUploadStatus(ctx context.Context, q querier, companyID, id string, status model.UploadStatus, categorizedCount int) error {
	var completedAt interface{}
	if status == model.UploadCompleted || status == model.UploadFailed {
		completedAt = time.Now()
	}

	res, err := q.ExecContext(ctx,
		`UPDATE uploads SET status = ?, categorized_count = ?, completed_at = ?
		 WHERE company_id = ? AND id = ?`,
		string(status), categorizedCount, completedAt, companyID, id)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check upload update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: upload %s", common.ErrNotFound, id)
	}
	return nil
}
