package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a monthly spending limit for one user and category.
// Limit and spent amounts are nil when the stored value is NULL.
type Budget struct {
	ID          int64            `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	User        *User            `json:"-"`
	Category    string           `json:"category"`
	Period      time.Time        `json:"period"`
	LimitAmount *decimal.Decimal `json:"limitAmount"`
	SpentAmount *decimal.Decimal `json:"spentAmount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Limit returns the limit amount, defaulting to zero
func (b *Budget) Limit() decimal.Decimal {
	return AmountOrZero(b.LimitAmount)
}

// Spent returns the spent amount, defaulting to zero
func (b *Budget) Spent() decimal.Decimal {
	return AmountOrZero(b.SpentAmount)
}

// BudgetRepository defines the budget operations the alert pipeline needs
type BudgetRepository interface {
	// ListAll returns every budget with its owning user joined when it still exists
	ListAll(ctx context.Context) ([]*Budget, error)
}
