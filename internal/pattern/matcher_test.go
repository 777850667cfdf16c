package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/dreflow/internal/model"
)

func makeRule(id, patternText string, ruleType model.RuleType, confidence float64) model.CategoryRule {
	return model.CategoryRule{
		ID:              id,
		CompanyID:       "co1",
		CategoryID:      "cat-" + id,
		Pattern:         patternText,
		RuleType:        ruleType,
		Status:          model.RuleStatusActive,
		SourceType:      model.RuleSourceManual,
		ConfidenceScore: confidence,
		IsActive:        true,
	}
}

func makeTxn(description string) model.Transaction {
	return model.Transaction{
		ID:          "txn-1",
		CompanyID:   "co1",
		Description: description,
		Amount:      -100,
		Type:        model.TransactionDebit,
	}
}

func TestMatcherMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("contains match is case insensitive", func(t *testing.T) {
		m := NewMatcher([]model.CategoryRule{makeRule("r1", "cliente alfa", model.RuleTypeContains, 0.9)})
		matches, err := m.Match(ctx, makeTxn("PIX RECEBIDO CLIENTE ALFA LTDA"))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "r1", matches[0].Rule.ID)
	})

	t.Run("exact requires the full text", func(t *testing.T) {
		m := NewMatcher([]model.CategoryRule{makeRule("r1", "TARIFA PACOTE SERVICOS", model.RuleTypeExact, 0.9)})

		matches, err := m.Match(ctx, makeTxn("TARIFA PACOTE SERVICOS"))
		require.NoError(t, err)
		assert.Len(t, matches, 1)

		matches, err = m.Match(ctx, makeTxn("TARIFA PACOTE SERVICOS 03"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("regex matches on compiled pattern", func(t *testing.T) {
		m := NewMatcher([]model.CategoryRule{makeRule("r1", `ALUGUEL\s+SALA\s+\d+`, model.RuleTypeRegex, 0.8)})
		matches, err := m.Match(ctx, makeTxn("DEB ALUGUEL SALA 203"))
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("invalid regex rule is skipped not fatal", func(t *testing.T) {
		bad := makeRule("r1", `ALUGUEL(`, model.RuleTypeRegex, 0.9)
		good := makeRule("r2", "ALUGUEL", model.RuleTypeContains, 0.8)
		m := NewMatcher([]model.CategoryRule{bad, good})

		matches, err := m.Match(ctx, makeTxn("DEB ALUGUEL SALA 203"))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "r2", matches[0].Rule.ID)
	})

	t.Run("candidate rules never match", func(t *testing.T) {
		candidate := makeRule("r1", "CLIENTE ALFA", model.RuleTypeContains, 0.99)
		candidate.Status = model.RuleStatusCandidate
		candidate.IsActive = false

		m := NewMatcher([]model.CategoryRule{candidate})
		matches, err := m.Match(ctx, makeTxn("PIX CLIENTE ALFA"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("inactive rules never match", func(t *testing.T) {
		inactive := makeRule("r1", "CLIENTE ALFA", model.RuleTypeContains, 0.99)
		inactive.Status = model.RuleStatusInactive
		inactive.IsActive = false

		m := NewMatcher([]model.CategoryRule{inactive})
		matches, err := m.Match(ctx, makeTxn("PIX CLIENTE ALFA"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("name and memo participate in matching", func(t *testing.T) {
		m := NewMatcher([]model.CategoryRule{makeRule("r1", "MADEIRAS SUL", model.RuleTypeContains, 0.9)})
		txn := makeTxn("PAGAMENTO BOLETO")
		txn.Memo = "fornecedor madeiras sul"

		matches, err := m.Match(ctx, txn)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})
}

func TestMatchOrdering(t *testing.T) {
	ctx := context.Background()

	t.Run("higher score first", func(t *testing.T) {
		exact := makeRule("exact", "CLIENTE ALFA", model.RuleTypeExact, 0.9)
		contains := makeRule("contains", "CLIENTE ALFA", model.RuleTypeContains, 0.9)

		m := NewMatcher([]model.CategoryRule{contains, exact})
		matches, err := m.Match(ctx, makeTxn("CLIENTE ALFA"))
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "exact", matches[0].Rule.ID)
	})

	t.Run("usage breaks score ties", func(t *testing.T) {
		light := makeRule("light", "CLIENTE ALFA", model.RuleTypeContains, 0.9)
		heavy := makeRule("heavy", "CLIENTE ALFA", model.RuleTypeContains, 0.9)
		// Both counters saturate the usage bonus, so scores tie and the
		// raw counter decides.
		light.UsageCount = 100
		heavy.UsageCount = 400

		m := NewMatcher([]model.CategoryRule{light, heavy})
		matches, err := m.Match(ctx, makeTxn("PIX CLIENTE ALFA"))
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "heavy", matches[0].Rule.ID)
	})

	t.Run("newest rule wins a full tie", func(t *testing.T) {
		older := makeRule("older", "CLIENTE ALFA", model.RuleTypeContains, 0.9)
		newer := makeRule("newer", "CLIENTE ALFA", model.RuleTypeContains, 0.9)
		older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		newer.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

		m := NewMatcher([]model.CategoryRule{older, newer})
		matches, err := m.Match(ctx, makeTxn("PIX CLIENTE ALFA"))
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "newer", matches[0].Rule.ID)
	})
}

func TestScore(t *testing.T) {
	t.Run("exact full confidence unused", func(t *testing.T) {
		rule := makeRule("r1", "X", model.RuleTypeExact, 1.0)
		// 1.0*0.4 + 1.0*0.5 + 0*0.1 = 0.9
		assert.InDelta(t, 90.0, Score(rule), 0.001)
	})

	t.Run("usage bonus is capped", func(t *testing.T) {
		rule := makeRule("r1", "X", model.RuleTypeContains, 0.8)
		rule.UsageCount = 1000000
		// 0.85*0.4 + 0.8*0.5 + 0.15*0.1 = 0.755
		assert.InDelta(t, 75.5, Score(rule), 0.001)
	})

	t.Run("regex weighs below contains", func(t *testing.T) {
		contains := makeRule("a", "X", model.RuleTypeContains, 0.8)
		regex := makeRule("b", "X", model.RuleTypeRegex, 0.8)
		assert.Greater(t, Score(contains), Score(regex))
	})
}

func TestTestRule(t *testing.T) {
	txns := []model.Transaction{
		makeTxn("PIX CLIENTE ALFA 1"),
		makeTxn("PIX CLIENTE ALFA 2"),
		makeTxn("PIX CLIENTE ALFA 3"),
		makeTxn("PIX CLIENTE ALFA 4"),
		makeTxn("PIX CLIENTE ALFA 5"),
		makeTxn("PIX CLIENTE ALFA 6"),
		makeTxn("TARIFA TED"),
	}

	candidate := makeRule("r1", "CLIENTE ALFA", model.RuleTypeContains, 0.7)
	candidate.Status = model.RuleStatusCandidate
	candidate.IsActive = false

	result := TestRule(candidate, txns)
	assert.Equal(t, 7, result.TotalTested)
	assert.Equal(t, 6, result.MatchCount)
	assert.Len(t, result.SampleMatches, 5)
}
