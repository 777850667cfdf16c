// Package movement infers the cash-flow nature of a transaction from its
// description and sign, and validates category assignments against it.
package movement

import (
	"strings"

	"github.com/fluxofin/dreflow/internal/model"
)

// Keyword groups checked in priority order. Brazilian bank statements use a
// fairly stable vocabulary for these, always uppercase and unaccented.
var (
	internalTransferMarkers = []string{
		"TRANSFERENCIA ENTRE CONTAS",
		"TRANSF ENTRE CONTAS",
		"PIX MESMA TITULARIDADE",
		"TED MESMA TITULARIDADE",
		"RESGATE AUTOMATICO",
		"APLICACAO AUTOMATICA",
		"APLICACAO FINANCEIRA",
		"RESGATE FUNDO",
	}

	financialFeeMarkers = []string{
		"TARIFA",
		"TAR ",
		"IOF",
		"JUROS",
		"MORA",
		"MULTA BANCARIA",
		"ANUIDADE",
		"CESTA DE SERVICOS",
	}

	loanMarkers = []string{
		"EMPRESTIMO",
		"FINANCIAMENTO",
		"CAPITAL DE GIRO",
		"PRONAMPE",
		"PARCELA EMPREST",
	}

	receivableMarkers = []string{
		"ANTECIPACAO",
		"DESCONTO DE DUPLICATA",
		"DESCONTO DUPLICATA",
		"FIDC",
		"FACTORING",
	}

	deductionMarkers = []string{
		"ESTORNO DE VENDA",
		"ESTORNO VENDA",
		"DEVOLUCAO DE CLIENTE",
		"DEVOLUCAO CLIENTE",
		"CANCELAMENTO DE VENDA",
	}

	directCostMarkers = []string{
		"FORNECEDOR",
		"COMPRA MATERIA PRIMA",
		"MATERIA PRIMA",
		"FRETE SOBRE COMPRA",
		"EMBALAGENS",
	}

	nonOperationalCreditMarkers = []string{
		"VENDA DE ATIVO",
		"VENDA DE IMOBILIZADO",
		"RESTITUICAO IRPJ",
		"RESTITUICAO DE IMPOSTO",
		"INDENIZACAO",
	}
)

// Classify infers the movement type of a transaction. The decision order
// matters: internal transfers first, then financial markers, then sign-aware
// deductions and costs, with the sign of the amount as the final default.
func Classify(description, memo string, amount float64) model.MovementType {
	text := normalizeText(description + " " + memo)

	if containsAny(text, internalTransferMarkers) {
		return model.MovementInternalTransfer
	}

	if containsAny(text, financialFeeMarkers) ||
		containsAny(text, loanMarkers) ||
		containsAny(text, receivableMarkers) {
		return model.MovementFinancial
	}

	if containsAny(text, deductionMarkers) {
		// Refunds of sales are deductions whichever direction the money
		// moved: a negative estorno reduces revenue, a positive one
		// reverses a cost.
		return model.MovementDeduction
	}

	if amount < 0 && containsAny(text, directCostMarkers) {
		return model.MovementDirectCost
	}

	if amount > 0 {
		if containsAny(text, nonOperationalCreditMarkers) {
			return model.MovementNonOperational
		}
		return model.MovementOperationalRevenue
	}

	return model.MovementDirectCost
}

// IsReceivablesFactoring reports whether the text carries receivables
// anticipation markers (FIDC, duplicata discounting). These must never be
// categorized as ordinary revenue.
func IsReceivablesFactoring(description, memo string) bool {
	return containsAny(normalizeText(description+" "+memo), receivableMarkers)
}

func normalizeText(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
