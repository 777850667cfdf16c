package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

const categoryColumns = "id, company_id, name, type, dre_group, is_ignored, is_active, created_at, updated_at"

// GetCategories returns all active categories for a company, ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context, companyID string) ([]model.Category, error) {
	if err := validateTenantArgs(ctx, companyID, "-", ""); err != nil {
		return nil, err
	}
	return getCategories(ctx, s.db, companyID)
}

// GetCategoryByID fetches one category within a company.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, companyID, id string) (*model.Category, error) {
	if err := validateTenantArgs(ctx, companyID, id, "id"); err != nil {
		return nil, err
	}
	return getCategoryByID(ctx, s.db, companyID, id)
}

// GetCategoryByName fetches one category by its name within a company.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, companyID, name string) (*model.Category, error) {
	if err := validateTenantArgs(ctx, companyID, name, "name"); err != nil {
		return nil, err
	}
	return getCategoryByName(ctx, s.db, companyID, name)
}

// CreateCategory persists a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return createCategory(ctx, s.db, category)
}

// UpdateCategory rewrites a category's mutable fields.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	return updateCategory(ctx, s.db, category)
}

func getCategories(ctx context.Context, q querier, companyID string) ([]model.Category, error) {
	query := fmt.Sprintf("SELECT %s FROM categories WHERE company_id = ? AND is_active = 1 ORDER BY name", categoryColumns)
	rows, err := q.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan category: %w", scanErr)
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}

func getCategoryByID(ctx context.Context, q querier, companyID, id string) (*model.Category, error) {
	query := fmt.Sprintf("SELECT %s FROM categories WHERE company_id = ? AND id = ?", categoryColumns)
	cat, err := scanCategory(q.QueryRowContext(ctx, query, companyID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return cat, nil
}

func getCategoryByName(ctx context.Context, q querier, companyID, name string) (*model.Category, error) {
	query := fmt.Sprintf("SELECT %s FROM categories WHERE company_id = ? AND name = ?", categoryColumns)
	cat, err := scanCategory(q.QueryRowContext(ctx, query, companyID, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return cat, nil
}

func createCategory(ctx context.Context, q querier, category *model.Category) error {
	now := time.Now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now

	_, err := q.ExecContext(ctx,
		`INSERT INTO categories (id, company_id, name, type, dre_group, is_ignored, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		category.ID, category.CompanyID, category.Name, string(category.Type),
		nullString(category.DREGroup), category.IsIgnored, category.IsActive,
		category.CreatedAt, category.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category %q: %w", category.Name, err)
	}
	return nil
}

func updateCategory(ctx context.Context, q querier, category *model.Category) error {
	category.UpdatedAt = time.Now()

	res, err := q.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, dre_group = ?, is_ignored = ?, is_active = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		category.Name, string(category.Type), nullString(category.DREGroup),
		category.IsIgnored, category.IsActive, category.UpdatedAt,
		category.CompanyID, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category %q: %w", category.Name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: category %s", common.ErrNotFound, category.ID)
	}
	return nil
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var cat model.Category
	var catType string
	var dreGroup sql.NullString

	err := row.Scan(&cat.ID, &cat.CompanyID, &cat.Name, &catType, &dreGroup,
		&cat.IsIgnored, &cat.IsActive, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cat.Type = model.CategoryType(catType)
	cat.DREGroup = dreGroup.String
	return &cat, nil
}
