// Package model defines the core domain models for the dreflow engine.
package model

import "time"

// CategoryType indicates the accounting nature of a category.
type CategoryType string

// Category type constants.
const (
	CategoryTypeRevenue        CategoryType = "revenue"
	CategoryTypeVariableCost   CategoryType = "variable_cost"
	CategoryTypeFixedCost      CategoryType = "fixed_cost"
	CategoryTypeNonOperational CategoryType = "non_operational"
	CategoryTypeTax            CategoryType = "tax"
	CategoryTypeTransfer       CategoryType = "transfer"
)

// IsCost reports whether the category type represents an outflow bucket.
func (t CategoryType) IsCost() bool {
	return t == CategoryTypeVariableCost || t == CategoryTypeFixedCost
}

// Category represents a tenant-scoped accounting category.
type Category struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	CompanyID string
	Name      string
	Type      CategoryType
	DREGroup  string // DRE group code; empty when the category is not mapped
	IsIgnored bool   // excluded from statements entirely
	IsActive  bool
}
