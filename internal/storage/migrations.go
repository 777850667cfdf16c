package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: companies, accounts, uploads, categories, transactions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS companies (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					tax_id TEXT,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL REFERENCES companies(id),
					name TEXT NOT NULL,
					bank_code TEXT,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounts_company ON accounts(company_id)`,

				`CREATE TABLE IF NOT EXISTS uploads (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL REFERENCES companies(id),
					account_id TEXT NOT NULL REFERENCES accounts(id),
					file_hash TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					transaction_count INTEGER DEFAULT 0,
					categorized_count INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					completed_at DATETIME,
					UNIQUE(company_id, file_hash)
				)`,
				`CREATE INDEX idx_uploads_company ON uploads(company_id)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL REFERENCES companies(id),
					name TEXT NOT NULL,
					type TEXT NOT NULL,
					dre_group TEXT,
					is_ignored BOOLEAN DEFAULT 0,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(company_id, name)
				)`,
				`CREATE INDEX idx_categories_company ON categories(company_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL REFERENCES companies(id),
					account_id TEXT NOT NULL REFERENCES accounts(id),
					upload_id TEXT REFERENCES uploads(id),
					hash TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					name TEXT,
					memo TEXT,
					amount REAL NOT NULL,
					type TEXT NOT NULL,
					category_id TEXT REFERENCES categories(id),
					confidence REAL DEFAULT 0,
					source TEXT,
					movement_type TEXT,
					rule_id TEXT,
					reasoning TEXT,
					needs_review BOOLEAN DEFAULT 0,
					verified BOOLEAN DEFAULT 0,
					manually_categorized BOOLEAN DEFAULT 0,
					categorized_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(company_id, hash)
				)`,
				`CREATE INDEX idx_transactions_company_date ON transactions(company_id, date)`,
				`CREATE INDEX idx_transactions_upload ON transactions(upload_id)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Category rules and rule feedback",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS category_rules (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL REFERENCES companies(id),
					category_id TEXT NOT NULL REFERENCES categories(id),
					pattern TEXT NOT NULL,
					rule_type TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'candidate',
					source_type TEXT NOT NULL DEFAULT 'manual',
					confidence_score REAL DEFAULT 0,
					usage_count INTEGER DEFAULT 0,
					validation_count INTEGER DEFAULT 0,
					negative_count INTEGER DEFAULT 0,
					is_active BOOLEAN DEFAULT 0,
					last_used_at DATETIME,
					last_validated_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_company_status ON category_rules(company_id, status)`,

				`CREATE TABLE IF NOT EXISTS rule_feedback (
					id TEXT PRIMARY KEY,
					rule_id TEXT NOT NULL REFERENCES category_rules(id),
					transaction_id TEXT NOT NULL REFERENCES transactions(id),
					outcome TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rule_feedback_rule ON rule_feedback(rule_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Transaction splits",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transaction_splits (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL REFERENCES transactions(id),
					category_id TEXT NOT NULL REFERENCES categories(id),
					amount REAL NOT NULL,
					note TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_splits_transaction ON transaction_splits(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
