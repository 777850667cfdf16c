package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPattern(t *testing.T) {
	tests := []struct {
		name         string
		description  string
		wantPattern  string
		wantStrategy string
		wantOK       bool
	}{
		{
			name:         "known entity wins over surrounding words",
			description:  "DEB AUTOR ENEL DISTRIBUICAO SP 03/2026",
			wantPattern:  "ENEL",
			wantStrategy: StrategyEntity,
			wantOK:       true,
		},
		{
			name:         "multi keyword from significant words",
			description:  "PIX RECEBIDO CLIENTE ALFA COMERCIO DE MADEIRAS",
			wantPattern:  "CLIENTE ALFA MADEIRAS",
			wantStrategy: StrategyMultiKeyword,
			wantOK:       true,
		},
		{
			name:         "single keyword fallback",
			description:  "PAGAMENTO BOLETO CONDOMINIO",
			wantPattern:  "CONDOMINIO",
			wantStrategy: StrategySingleKeyword,
			wantOK:       true,
		},
		{
			name:        "all generic yields nothing",
			description: "PIX TED PAGAMENTO",
			wantOK:      false,
		},
		{
			name:        "empty description",
			description: "  123  ",
			wantOK:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPattern(tt.description)
			if !tt.wantOK {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantPattern, got.Pattern)
			assert.Equal(t, tt.wantStrategy, got.Strategy)
		})
	}
}
