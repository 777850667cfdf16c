package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

func makeClassifiedTxn(description string) *model.Transaction {
	return &model.Transaction{
		ID:          "txn-1",
		CompanyID:   "co1",
		AccountID:   "acc1",
		Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      1500,
		Type:        model.TransactionCredit,
	}
}

func TestCreateFromClassification(t *testing.T) {
	store, _ := setupLifecycle(t)
	gen := NewGenerator(store, nil)
	ctx := context.Background()

	t.Run("creates a candidate rule", func(t *testing.T) {
		rule, err := gen.CreateFromClassification(ctx, makeClassifiedTxn("PIX RECEBIDO CLIENTE ALFA"), "cat-1", 85)
		require.NoError(t, err)
		require.NotNil(t, rule)

		assert.Equal(t, model.RuleStatusCandidate, rule.Status)
		assert.Equal(t, model.RuleSourceAIGenerated, rule.SourceType)
		assert.False(t, rule.IsActive)
		assert.Equal(t, model.RuleTypeContains, rule.RuleType)
		assert.InDelta(t, 0.85, rule.ConfidenceScore, 0.001)
		assert.Equal(t, "CLIENTE ALFA", rule.Pattern)

		stored, err := store.GetRuleByID(ctx, "co1", rule.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RuleStatusCandidate, stored.Status)
	})

	t.Run("near duplicate is not recreated", func(t *testing.T) {
		rule, err := gen.CreateFromClassification(ctx, makeClassifiedTxn("PIX RECEBIDO CLIENTE ALFA 02"), "cat-1", 90)
		require.NoError(t, err)
		assert.Nil(t, rule)
	})

	t.Run("low confidence yields nothing", func(t *testing.T) {
		rule, err := gen.CreateFromClassification(ctx, makeClassifiedTxn("PIX FORNECEDOR MADEIRAS"), "cat-1", 60)
		require.NoError(t, err)
		assert.Nil(t, rule)
	})

	t.Run("generic description yields nothing", func(t *testing.T) {
		rule, err := gen.CreateFromClassification(ctx, makeClassifiedTxn("PIX PAGAMENTO BOLETO"), "cat-1", 95)
		require.NoError(t, err)
		assert.Nil(t, rule)
	})

	t.Run("foreign category is a cross tenant error", func(t *testing.T) {
		_, err := gen.CreateFromClassification(ctx, makeClassifiedTxn("PIX CLIENTE BETA"), "cat-foreign", 95)
		assert.ErrorIs(t, err, common.ErrCrossTenant)
	})
}
