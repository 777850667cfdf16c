package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ClassifyResponse
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"category": "Aluguel", "confidence": 85, "reasoning": "rent payment"}`,
			want:    ClassifyResponse{CategoryName: "Aluguel", Confidence: 85, Reasoning: "rent payment"},
		},
		{
			name:    "markdown wrapped",
			content: "```json\n{\"category\": \"Fornecedores\", \"confidence\": 72, \"reasoning\": \"supplier\"}\n```",
			want:    ClassifyResponse{CategoryName: "Fornecedores", Confidence: 72, Reasoning: "supplier"},
		},
		{
			name:    "missing category",
			content: `{"confidence": 90}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: "I think this is rent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(ClassifyRequest{
		Description:  "PIX RECEBIDO CLIENTE ACME",
		Amount:       1500.00,
		MovementType: "operacional_receita",
		Categories: []CandidateCategory{
			{Name: "Vendas", Type: "revenue"},
			{Name: "Aluguel", Type: "fixed_cost"},
		},
	})

	assert.Contains(t, prompt, "PIX RECEBIDO CLIENTE ACME")
	assert.Contains(t, prompt, "Vendas (revenue)")
	assert.Contains(t, prompt, "operacional_receita")
	assert.Contains(t, prompt, `"confidence"`)
}

func TestNewClientUnsupportedProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "bard"})
	require.Error(t, err)

	client, err := NewClient(Config{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, client)
}
