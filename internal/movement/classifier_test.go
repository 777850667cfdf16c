package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxofin/dreflow/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		description string
		memo        string
		amount      float64
		want        model.MovementType
	}{
		{
			name:        "pix credit defaults to operational revenue",
			description: "PIX RECEBIDO CLIENTE ALFA LTDA",
			amount:      1500.00,
			want:        model.MovementOperationalRevenue,
		},
		{
			name:        "plain debit defaults to direct cost",
			description: "PAGAMENTO BOLETO 341998",
			amount:      -820.50,
			want:        model.MovementDirectCost,
		},
		{
			name:        "transfer between own accounts",
			description: "TRANSF ENTRE CONTAS 0001 1234",
			amount:      -5000,
			want:        model.MovementInternalTransfer,
		},
		{
			name:        "same ownership pix is a transfer",
			description: "PIX MESMA TITULARIDADE",
			amount:      5000,
			want:        model.MovementInternalTransfer,
		},
		{
			name:        "automatic investment sweep is a transfer",
			description: "APLICACAO AUTOMATICA CDB",
			amount:      -10000,
			want:        model.MovementInternalTransfer,
		},
		{
			name:        "bank fee is financial",
			description: "TARIFA PACOTE DE SERVICOS",
			amount:      -45.90,
			want:        model.MovementFinancial,
		},
		{
			name:        "iof is financial",
			description: "IOF SOBRE OPERACAO",
			amount:      -3.12,
			want:        model.MovementFinancial,
		},
		{
			name:        "loan disbursement is financial even as a credit",
			description: "CREDITO EMPRESTIMO CAPITAL DE GIRO",
			amount:      50000,
			want:        model.MovementFinancial,
		},
		{
			name:        "fidc anticipation is financial not revenue",
			description: "ANTECIPACAO FIDC NU FINANCEIRA",
			amount:      32000,
			want:        model.MovementFinancial,
		},
		{
			name:        "duplicata discount is financial",
			description: "DESCONTO DE DUPLICATA 889123",
			amount:      12000,
			want:        model.MovementFinancial,
		},
		{
			name:        "sale refund is a deduction",
			description: "ESTORNO DE VENDA CARTAO",
			amount:      -230,
			want:        model.MovementDeduction,
		},
		{
			name:        "customer return credit is still a deduction",
			description: "DEVOLUCAO DE CLIENTE PEDIDO 4431",
			amount:      180,
			want:        model.MovementDeduction,
		},
		{
			name:        "supplier debit is a direct cost",
			description: "PAGAMENTO FORNECEDOR MADEIRAS SUL",
			amount:      -4200,
			want:        model.MovementDirectCost,
		},
		{
			name:        "supplier keyword on a credit does not force cost",
			description: "REEMBOLSO FORNECEDOR",
			amount:      900,
			want:        model.MovementOperationalRevenue,
		},
		{
			name:        "asset sale credit is non operational",
			description: "VENDA DE IMOBILIZADO VEICULO",
			amount:      28000,
			want:        model.MovementNonOperational,
		},
		{
			name:        "tax refund credit is non operational",
			description: "RESTITUICAO IRPJ 2025",
			amount:      1320,
			want:        model.MovementNonOperational,
		},
		{
			name:        "memo is part of the text",
			description: "LANCAMENTO",
			memo:        "tarifa ted",
			amount:      -9.90,
			want:        model.MovementFinancial,
		},
		{
			name:        "lowercase input is normalized",
			description: "transferencia entre contas",
			amount:      -100,
			want:        model.MovementInternalTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.description, tt.memo, tt.amount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsReceivablesFactoring(t *testing.T) {
	assert.True(t, IsReceivablesFactoring("ANTECIPACAO DE RECEBIVEIS", ""))
	assert.True(t, IsReceivablesFactoring("liquidacao", "fidc lote 3"))
	assert.False(t, IsReceivablesFactoring("PIX RECEBIDO CLIENTE", ""))
}
