package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ExpenseRepository implements domain.ExpenseRepository using PostgreSQL
type ExpenseRepository struct {
	pool *pgxpool.Pool
}

// NewExpenseRepository creates a new ExpenseRepository
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

const sumSpent = `
SELECT COALESCE(SUM(amount), 0)
FROM expenses
WHERE user_id = $1
  AND expense_date >= $2
  AND expense_date < $3
  AND ($4::text = '' OR LOWER(category) = LOWER($4::text))`

// SumSpent totals the user's expenses dated in [from, to)
func (r *ExpenseRepository) SumSpent(ctx context.Context, userID uuid.UUID, category string, from, to time.Time) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := r.pool.QueryRow(ctx, sumSpent, uuidToPg(userID), timeToPgDate(from), timeToPgDate(to), category).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return pgNumericToDecimal(total), nil
}
