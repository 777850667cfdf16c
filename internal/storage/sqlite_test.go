package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/service"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedCompany(t *testing.T, store *SQLiteStorage, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateCompany(ctx, &model.Company{
		ID:       id,
		Name:     "Empresa " + id,
		TaxID:    "12.345.678/0001-90",
		IsActive: true,
	}))
	require.NoError(t, store.CreateAccount(ctx, &model.Account{
		ID:        id + "-acc",
		CompanyID: id,
		Name:      "Conta Corrente",
		BankCode:  "341",
		IsActive:  true,
	}))
}

func seedCategory(t *testing.T, store *SQLiteStorage, companyID, id, name string, catType model.CategoryType, group string) {
	t.Helper()
	require.NoError(t, store.CreateCategory(context.Background(), &model.Category{
		ID:        id,
		CompanyID: companyID,
		Name:      name,
		Type:      catType,
		DREGroup:  group,
		IsActive:  true,
	}))
}

func makeTransaction(companyID, id, description string, amount float64) model.Transaction {
	txnType := model.TransactionCredit
	if amount < 0 {
		txnType = model.TransactionDebit
	}
	return model.Transaction{
		ID:          id,
		CompanyID:   companyID,
		AccountID:   companyID + "-acc",
		Date:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      amount,
		Type:        txnType,
		Source:      model.SourceImport,
	}
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")

	txns := []model.Transaction{
		makeTransaction("co1", "txn-1", "PIX RECEBIDO CLIENTE ALFA", 1500.00),
		makeTransaction("co1", "txn-2", "PAGAMENTO FORNECEDOR BETA", -820.50),
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	// Re-importing the same statement lines is silently ignored.
	dup := makeTransaction("co1", "txn-3", "PIX RECEBIDO CLIENTE ALFA", 1500.00)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{dup}))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{CompanyID: "co1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	t.Run("invalid transaction rejected", func(t *testing.T) {
		err := store.SaveTransactions(ctx, []model.Transaction{{ID: "bad"}})
		assert.Error(t, err)
	})
}

func TestGetTransactionByIDTenantIsolation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCompany(t, store, "co2")

	txn := makeTransaction("co1", "txn-1", "TED RECEBIDA", 300)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	got, err := store.GetTransactionByID(ctx, "co1", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "TED RECEBIDA", got.Description)

	_, err = store.GetTransactionByID(ctx, "co2", "txn-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetTransactionsFilters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCategory(t, store, "co1", "cat-1", "Receita de Vendas", model.CategoryTypeRevenue, "RoB")

	catID := "cat-1"
	classified := makeTransaction("co1", "txn-1", "PIX CLIENTE", 100)
	classified.CategoryID = &catID
	now := time.Now()
	classified.CategorizedAt = &now

	pending := makeTransaction("co1", "txn-2", "DEBITO DESCONHECIDO", -50)
	pending.Date = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{classified, pending}))

	t.Run("only pending", func(t *testing.T) {
		got, err := store.GetTransactionsToClassify(ctx, "co1", "", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "txn-2", got[0].ID)
	})

	t.Run("only classified", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{CompanyID: "co1", OnlyClassified: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "txn-1", got[0].ID)
	})

	t.Run("date range is half open", func(t *testing.T) {
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		got, err := store.GetTransactions(ctx, service.TransactionFilter{
			CompanyID: "co1",
			StartDate: &start,
			EndDate:   &end,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "txn-1", got[0].ID)
	})

	t.Run("classified since", func(t *testing.T) {
		got, err := store.GetClassifiedSince(ctx, "co1", now.Add(-time.Minute), 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].CategoryID)
		assert.Equal(t, "cat-1", *got[0].CategoryID)
	})
}

func TestUpdateTransactionCategorization(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCategory(t, store, "co1", "cat-1", "Receita de Vendas", model.CategoryTypeRevenue, "RoB")

	txn := makeTransaction("co1", "txn-1", "PIX RECEBIDO CLIENTE ALFA", 1500)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	catID := "cat-1"
	result := &model.ClassificationResult{
		CategoryID:   &catID,
		CategoryName: "Receita de Vendas",
		Source:       model.SourceRule,
		MovementType: model.MovementOperationalRevenue,
		Confidence:   92,
		ClassifiedAt: time.Now(),
	}
	result.Reasoning.Source = model.SourceRule
	result.Reasoning.Summary = "matched rule"

	require.NoError(t, store.UpdateTransactionCategorization(ctx, "co1", "txn-1", result))

	got, err := store.GetTransactionByID(ctx, "co1", "txn-1")
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "cat-1", *got.CategoryID)
	assert.Equal(t, model.SourceRule, got.Source)
	assert.Equal(t, model.MovementOperationalRevenue, got.MovementType)
	assert.InDelta(t, 92.0, got.Confidence, 0.001)
	assert.False(t, got.NeedsReview)
	assert.Contains(t, got.Reasoning, "matched rule")
	require.NotNil(t, got.CategorizedAt)

	t.Run("unknown transaction", func(t *testing.T) {
		err := store.UpdateTransactionCategorization(ctx, "co1", "missing", result)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("wrong tenant", func(t *testing.T) {
		seedCompany(t, store, "co2")
		err := store.UpdateTransactionCategorization(ctx, "co2", "txn-1", result)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestBulkUpdateCategory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCategory(t, store, "co1", "cat-1", "Tarifas Bancárias", model.CategoryTypeFixedCost, "CF")

	txns := []model.Transaction{
		makeTransaction("co1", "txn-1", "TARIFA PACOTE SERVICOS", -45),
		makeTransaction("co1", "txn-2", "TARIFA TED", -12),
		makeTransaction("co1", "txn-3", "PIX CLIENTE", 100),
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	n, err := store.BulkUpdateCategory(ctx, "co1", []string{"txn-1", "txn-2", "missing"}, "cat-1", `{"summary":"bulk"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.GetTransactionByID(ctx, "co1", "txn-1")
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "cat-1", *got.CategoryID)
	assert.Equal(t, model.SourceRule, got.Source)
	assert.False(t, got.NeedsReview)

	t.Run("empty set", func(t *testing.T) {
		n, err := store.BulkUpdateCategory(ctx, "co1", nil, "cat-1", "")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSplits(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCategory(t, store, "co1", "cat-1", "Aluguel", model.CategoryTypeFixedCost, "CF")
	seedCategory(t, store, "co1", "cat-2", "Energia", model.CategoryTypeFixedCost, "CF")

	txn := makeTransaction("co1", "txn-1", "DEBITO CONDOMINIO", -1000)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	require.NoError(t, store.CreateSplit(ctx, &model.TransactionSplit{
		ID: "sp-1", TransactionID: "txn-1", CategoryID: "cat-1", Amount: -700,
	}))
	require.NoError(t, store.CreateSplit(ctx, &model.TransactionSplit{
		ID: "sp-2", TransactionID: "txn-1", CategoryID: "cat-2", Amount: -300, Note: "rateio energia",
	}))

	splits, err := store.GetSplitsByTransactionIDs(ctx, "co1", []string{"txn-1"})
	require.NoError(t, err)
	require.Len(t, splits["txn-1"], 2)

	t.Run("other tenant sees nothing", func(t *testing.T) {
		seedCompany(t, store, "co2")
		splits, err := store.GetSplitsByTransactionIDs(ctx, "co2", []string{"txn-1"})
		require.NoError(t, err)
		assert.Empty(t, splits)
	})

	t.Run("incomplete split rejected", func(t *testing.T) {
		err := store.CreateSplit(ctx, &model.TransactionSplit{ID: "sp-3"})
		assert.Error(t, err)
	})
}

func TestCategories(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCompany(t, store, "co2")

	seedCategory(t, store, "co1", "cat-1", "Receita de Vendas", model.CategoryTypeRevenue, "RoB")

	t.Run("get by name", func(t *testing.T) {
		got, err := store.GetCategoryByName(ctx, "co1", "Receita de Vendas")
		require.NoError(t, err)
		assert.Equal(t, "cat-1", got.ID)
		assert.Equal(t, "RoB", got.DREGroup)
	})

	t.Run("name unique per company", func(t *testing.T) {
		err := store.CreateCategory(ctx, &model.Category{
			ID: "cat-dup", CompanyID: "co1", Name: "Receita de Vendas",
			Type: model.CategoryTypeRevenue, DREGroup: "RoB", IsActive: true,
		})
		assert.Error(t, err)

		// Same name under another company is fine.
		seedCategory(t, store, "co2", "cat-other", "Receita de Vendas", model.CategoryTypeRevenue, "RoB")
	})

	t.Run("not found crosses tenants", func(t *testing.T) {
		_, err := store.GetCategoryByID(ctx, "co2", "cat-1")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		got, err := store.GetCategoryByID(ctx, "co1", "cat-1")
		require.NoError(t, err)
		got.IsIgnored = true
		require.NoError(t, store.UpdateCategory(ctx, got))

		// Listing only returns active, non-filtered rows in name order.
		seedCategory(t, store, "co1", "cat-2", "Energia", model.CategoryTypeFixedCost, "CF")
		cats, err := store.GetCategories(ctx, "co1")
		require.NoError(t, err)
		require.Len(t, cats, 2)
		assert.Equal(t, "Energia", cats[0].Name)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		err := store.CreateCategory(ctx, &model.Category{
			ID: "cat-bad", CompanyID: "co1", Name: "Inválida", Type: "whatever",
		})
		assert.Error(t, err)
	})
}

func TestRules(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCategory(t, store, "co1", "cat-1", "Receita de Vendas", model.CategoryTypeRevenue, "RoB")

	active := &model.CategoryRule{
		ID: "rule-1", CompanyID: "co1", CategoryID: "cat-1",
		Pattern: "CLIENTE ALFA", RuleType: model.RuleTypeContains,
		Status: model.RuleStatusActive, SourceType: model.RuleSourceManual,
		ConfidenceScore: 0.9, IsActive: true,
	}
	candidate := &model.CategoryRule{
		ID: "rule-2", CompanyID: "co1", CategoryID: "cat-1",
		Pattern: "CLIENTE BETA", RuleType: model.RuleTypeContains,
		Status: model.RuleStatusCandidate, SourceType: model.RuleSourceAIGenerated,
		ConfidenceScore: 0.8,
	}
	require.NoError(t, store.CreateRule(ctx, active))
	require.NoError(t, store.CreateRule(ctx, candidate))

	t.Run("trusted filter excludes candidates", func(t *testing.T) {
		rules, err := store.GetRules(ctx, "co1", false)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "rule-1", rules[0].ID)

		all, err := store.GetRules(ctx, "co1", true)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("increment usage", func(t *testing.T) {
		usedAt := time.Now()
		require.NoError(t, store.IncrementRuleUsage(ctx, "co1", "rule-1", usedAt))
		require.NoError(t, store.IncrementRuleUsage(ctx, "co1", "rule-1", usedAt))

		got, err := store.GetRuleByID(ctx, "co1", "rule-1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.UsageCount)
		require.NotNil(t, got.LastUsedAt)
	})

	t.Run("update", func(t *testing.T) {
		got, err := store.GetRuleByID(ctx, "co1", "rule-2")
		require.NoError(t, err)
		got.Status = model.RuleStatusActive
		got.IsActive = true
		got.ValidationCount = 3
		require.NoError(t, store.UpdateRule(ctx, got))

		rules, err := store.GetRules(ctx, "co1", false)
		require.NoError(t, err)
		assert.Len(t, rules, 2)
	})

	t.Run("wrong tenant", func(t *testing.T) {
		seedCompany(t, store, "co2")
		_, err := store.GetRuleByID(ctx, "co2", "rule-1")
		assert.ErrorIs(t, err, common.ErrNotFound)

		err = store.IncrementRuleUsage(ctx, "co2", "rule-1", time.Now())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("feedback", func(t *testing.T) {
		err := store.SaveRuleFeedback(ctx, &model.RuleFeedback{
			ID: "fb-1", RuleID: "rule-1", TransactionID: "txn-1",
			Outcome: model.FeedbackPositive, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	})

	t.Run("invalid confidence rejected", func(t *testing.T) {
		bad := &model.CategoryRule{
			ID: "rule-bad", CompanyID: "co1", CategoryID: "cat-1",
			Pattern: "X", RuleType: model.RuleTypeContains,
			Status: model.RuleStatusActive, SourceType: model.RuleSourceManual,
			ConfidenceScore: 1.5,
		}
		assert.Error(t, store.CreateRule(ctx, bad))
	})
}

func TestUploads(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")

	upload := &model.Upload{
		ID: "up-1", CompanyID: "co1", AccountID: "co1-acc",
		FileHash: "abc123", TransactionCount: 10,
	}
	require.NoError(t, store.CreateUpload(ctx, upload))

	got, err := store.GetUpload(ctx, "co1", "up-1")
	require.NoError(t, err)
	assert.Equal(t, model.UploadPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	t.Run("same file twice rejected", func(t *testing.T) {
		err := store.CreateUpload(ctx, &model.Upload{
			ID: "up-2", CompanyID: "co1", AccountID: "co1-acc", FileHash: "abc123",
		})
		assert.Error(t, err)
	})

	t.Run("completion stamps time", func(t *testing.T) {
		require.NoError(t, store.UpdateUploadStatus(ctx, "co1", "up-1", model.UploadProcessing, 0))
		require.NoError(t, store.UpdateUploadStatus(ctx, "co1", "up-1", model.UploadCompleted, 9))

		got, err := store.GetUpload(ctx, "co1", "up-1")
		require.NoError(t, err)
		assert.Equal(t, model.UploadCompleted, got.Status)
		assert.Equal(t, 9, got.CategorizedCount)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("wrong tenant", func(t *testing.T) {
		seedCompany(t, store, "co2")
		_, err := store.GetUpload(ctx, "co2", "up-1")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestTransactionCommitAndRollback(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	seedCompany(t, store, "co1")
	seedCategory(t, store, "co1", "cat-1", "Receita de Vendas", model.CategoryTypeRevenue, "RoB")

	txns := []model.Transaction{
		makeTransaction("co1", "txn-1", "PIX CLIENTE", 100),
		makeTransaction("co1", "txn-2", "PIX CLIENTE", 200),
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	t.Run("rollback leaves rows untouched", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		_, err = tx.BulkUpdateCategory(ctx, "co1", []string{"txn-1", "txn-2"}, "cat-1", "{}")
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		got, err := store.GetTransactionByID(ctx, "co1", "txn-1")
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)
	})

	t.Run("commit persists", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		n, err := tx.BulkUpdateCategory(ctx, "co1", []string{"txn-1", "txn-2"}, "cat-1", "{}")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.NoError(t, tx.Commit())

		got, err := store.GetTransactionByID(ctx, "co1", "txn-2")
		require.NoError(t, err)
		require.NotNil(t, got.CategoryID)
		assert.Equal(t, "cat-1", *got.CategoryID)
	})
}

func TestValidation(t *testing.T) {
	store := createTestStorage(t)

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil-context guard
		_, err := store.GetCategories(nil, "co1")
		assert.ErrorIs(t, err, ErrNilContext)
	})

	t.Run("empty company", func(t *testing.T) {
		_, err := store.GetCategories(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}
