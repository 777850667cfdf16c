package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/storage"
)

func classifyExisting(t *testing.T, store *storage.SQLiteStorage, txnID, categoryID string, confidence float64) {
	t.Helper()
	catID := categoryID
	require.NoError(t, store.UpdateTransactionCategorization(context.Background(), "co1", txnID, &model.ClassificationResult{
		CategoryID:   &catID,
		Source:       model.SourceManual,
		Confidence:   confidence,
		ClassifiedAt: time.Now(),
	}))
}

func TestHistoryFindMatch(t *testing.T) {
	store := setupEngineStorage(t)
	matcher := NewHistoryMatcher(store)
	ctx := context.Background()

	t.Run("most frequent category wins", func(t *testing.T) {
		for i, id := range []string{"h1", "h2", "h3"} {
			seedPendingTxn(t, store, id, "PIX RECEBIDO CLIENTE DELTA", 100+float64(i))
			classifyExisting(t, store, id, "cat-rev", 90)
		}
		seedPendingTxn(t, store, "h4", "PIX RECEBIDO CLIENTE DELTA FIM", -90)
		classifyExisting(t, store, "h4", "cat-cf", 90)

		txn := seedPendingTxn(t, store, "probe-1", "PIX RECEBIDO CLIENTE DELTA 7731", 110)
		match, err := matcher.FindMatch(ctx, txn, 90)
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "cat-rev", match.CategoryID)
		assert.Equal(t, 3, match.MatchCount)
		assert.GreaterOrEqual(t, match.Confidence, 70.0)
		assert.LessOrEqual(t, match.Confidence, 95.0)
	})

	t.Run("dissimilar history yields nothing", func(t *testing.T) {
		txn := seedPendingTxn(t, store, "probe-2", "ALUGUEL GALPAO ZONA NORTE", -4000)
		match, err := matcher.FindMatch(ctx, txn, 90)
		require.NoError(t, err)
		assert.Nil(t, match)
	})

	t.Run("old history is out of the window", func(t *testing.T) {
		txn := seedPendingTxn(t, store, "probe-3", "PIX RECEBIDO CLIENTE DELTA 9944", 120)
		// A one day window excludes nothing here since the precedents were
		// classified moments ago, so first confirm the positive case.
		match, err := matcher.FindMatch(ctx, txn, 1)
		require.NoError(t, err)
		require.NotNil(t, match)
	})
}
