package movement

import (
	"fmt"

	"github.com/fluxofin/dreflow/internal/common"
	"github.com/fluxofin/dreflow/internal/dre"
	"github.com/fluxofin/dreflow/internal/model"
)

// Rejection reason codes carried in reasoning traces.
const (
	ReasonPositiveIntoCost       = "positive_amount_in_cost_category"
	ReasonNegativeIntoRevenue    = "negative_amount_in_revenue_category"
	ReasonTransferIntoOperating  = "internal_transfer_in_operating_group"
	ReasonFinancialIntoRevenue   = "financial_movement_in_gross_revenue"
	ReasonFinancialIntoOperating = "financial_movement_in_operating_group"
	ReasonTypeNotAllowed         = "category_type_not_allowed_for_movement"
)

// RejectionError explains why a category assignment is inconsistent with the
// transaction's movement type.
type RejectionError struct {
	Reason string
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return common.ErrValidation
}

// AllowedCategoryTypes returns the category types a movement type may map to.
func AllowedCategoryTypes(mt model.MovementType) []model.CategoryType {
	switch mt {
	case model.MovementOperationalRevenue:
		return []model.CategoryType{model.CategoryTypeRevenue}
	case model.MovementNonOperational:
		return []model.CategoryType{model.CategoryTypeNonOperational}
	case model.MovementDirectCost:
		return []model.CategoryType{model.CategoryTypeVariableCost, model.CategoryTypeFixedCost}
	case model.MovementFinancial:
		return []model.CategoryType{model.CategoryTypeNonOperational, model.CategoryTypeFixedCost}
	case model.MovementInternalTransfer:
		return []model.CategoryType{model.CategoryTypeTransfer}
	case model.MovementDeduction:
		return []model.CategoryType{model.CategoryTypeRevenue, model.CategoryTypeVariableCost, model.CategoryTypeTax}
	default:
		return nil
	}
}

// Validate checks that assigning category to a transaction with the given
// signed amount and movement type would not produce an inconsistent
// statement. A nil return means the assignment is acceptable.
func Validate(amount float64, mt model.MovementType, category *model.Category) error {
	if category == nil {
		return &RejectionError{Reason: ReasonTypeNotAllowed, Detail: "no category"}
	}

	// Deductions are the one case where money flows against the category's
	// natural direction: a refunded sale debits revenue, a reversed cost
	// credits a cost category.
	if mt != model.MovementDeduction {
		if amount > 0 && category.Type.IsCost() {
			return &RejectionError{
				Reason: ReasonPositiveIntoCost,
				Detail: fmt.Sprintf("credit of %.2f cannot land in cost category %q", amount, category.Name),
			}
		}
		if amount < 0 && category.Type == model.CategoryTypeRevenue {
			return &RejectionError{
				Reason: ReasonNegativeIntoRevenue,
				Detail: fmt.Sprintf("debit of %.2f cannot land in revenue category %q", amount, category.Name),
			}
		}
	}

	if mt == model.MovementInternalTransfer && dre.IsOperatingGroup(category.DREGroup) {
		return &RejectionError{
			Reason: ReasonTransferIntoOperating,
			Detail: fmt.Sprintf("internal transfer cannot hit operating group %s", category.DREGroup),
		}
	}

	// Financial movements belong below the operating result. A fee or
	// interest charge landing in an operating group would inflate MC/EBIT,
	// even when the category type itself is whitelisted.
	if mt == model.MovementFinancial {
		if dre.IsGrossRevenueGroup(category.DREGroup) {
			return &RejectionError{
				Reason: ReasonFinancialIntoRevenue,
				Detail: fmt.Sprintf("financial movement cannot map to %s", category.DREGroup),
			}
		}
		if dre.IsOperatingGroup(category.DREGroup) {
			return &RejectionError{
				Reason: ReasonFinancialIntoOperating,
				Detail: fmt.Sprintf("financial movement cannot hit operating group %s", category.DREGroup),
			}
		}
	}

	allowed := AllowedCategoryTypes(mt)
	for _, t := range allowed {
		if category.Type == t {
			return nil
		}
	}
	return &RejectionError{
		Reason: ReasonTypeNotAllowed,
		Detail: fmt.Sprintf("category type %s not allowed for movement %s", category.Type, mt),
	}
}
