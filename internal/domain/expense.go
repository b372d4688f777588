package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID        int64           `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ExpenseRepository interface {
	// SumSpent totals expenses dated in [from, to). Category matching ignores case;
	// an empty category matches every expense of the user.
	SumSpent(ctx context.Context, userID uuid.UUID, category string, from, to time.Time) (decimal.Decimal, error)
}
