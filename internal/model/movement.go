package model

// MovementType is the cash-flow nature of a transaction, inferred from its
// description and sign before any category is assigned.
type MovementType string

// Movement type constants.
const (
	MovementOperationalRevenue MovementType = "operacional_receita"
	MovementNonOperational     MovementType = "nao_operacional"
	MovementDirectCost         MovementType = "custo_direto"
	MovementFinancial          MovementType = "financeiro"
	MovementInternalTransfer   MovementType = "transferencia_interna"
	MovementDeduction          MovementType = "deducao"
)

// IsTransfer reports whether the movement is money shuffled between the
// company's own accounts rather than a real inflow or outflow.
func (m MovementType) IsTransfer() bool {
	return m == MovementInternalTransfer
}
