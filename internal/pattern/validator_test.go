package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/model"
)

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		ruleType model.RuleType
		wantErr  bool
	}{
		{name: "specific counterparty", pattern: "CLIENTE ALFA", ruleType: model.RuleTypeContains},
		{name: "too short", pattern: "AB", ruleType: model.RuleTypeContains, wantErr: true},
		{name: "only generic words", pattern: "PIX PAGAMENTO BOLETO", ruleType: model.RuleTypeContains, wantErr: true},
		{name: "generic plus anchor", pattern: "PAGAMENTO MADEIRAS", ruleType: model.RuleTypeContains},
		{name: "valid regex", pattern: `ALUGUEL\s+SALA`, ruleType: model.RuleTypeRegex},
		{name: "invalid regex", pattern: `ALUGUEL(`, ruleType: model.RuleTypeRegex, wantErr: true},
		{name: "whitespace only", pattern: "   ", ruleType: model.RuleTypeExact, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePattern(tt.pattern, tt.ruleType)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidatePatternLengthBound(t *testing.T) {
	long := make([]byte, common.MaxRegexPatternLength+1)
	for i := range long {
		long[i] = 'A'
	}
	err := ValidatePattern(string(long), model.RuleTypeRegex)
	assert.Error(t, err)
}

func TestFindDuplicate(t *testing.T) {
	rules := []model.CategoryRule{
		{ID: "r1", CategoryID: "cat-1", Pattern: "CLIENTE ALFA COMERCIO"},
		{ID: "r2", CategoryID: "cat-2", Pattern: "TARIFA PACOTE"},
	}

	t.Run("near identical same category", func(t *testing.T) {
		dup := FindDuplicate(rules, "CLIENTE ALFA COMERCIOS", "cat-1")
		require.NotNil(t, dup)
		assert.Equal(t, "r1", dup.ID)
	})

	t.Run("same pattern different category is not a duplicate", func(t *testing.T) {
		assert.Nil(t, FindDuplicate(rules, "CLIENTE ALFA COMERCIO", "cat-2"))
	})

	t.Run("distinct pattern", func(t *testing.T) {
		assert.Nil(t, FindDuplicate(rules, "FORNECEDOR MADEIRAS SUL", "cat-1"))
	})
}
