package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartspend/smartspend-backend/internal/domain"
)

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

const listBudgetsWithUsers = `
SELECT b.id, b.user_id, b.category, b.period, b.limit_amount, b.spent_amount, b.created_at, b.updated_at,
       u.id, u.auth0_id, u.email, u.name, u.created_at, u.updated_at
FROM budgets b
LEFT JOIN users u ON u.id = b.user_id
ORDER BY b.id`

// ListAll retrieves every budget with its owner joined. Budgets whose owner no
// longer exists come back with a nil User.
func (r *BudgetRepository) ListAll(ctx context.Context) ([]*domain.Budget, error) {
	rows, err := r.pool.Query(ctx, listBudgetsWithUsers)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]*domain.Budget, 0)
	for rows.Next() {
		var (
			id                    int64
			userID                pgtype.UUID
			category              string
			period                pgtype.Date
			limitAmount, spent    pgtype.Numeric
			createdAt, updatedAt  pgtype.Timestamptz
			ownerID               pgtype.UUID
			auth0ID, email, name  pgtype.Text
			ownerCreated, ownerUp pgtype.Timestamptz
		)
		if err := rows.Scan(
			&id, &userID, &category, &period, &limitAmount, &spent, &createdAt, &updatedAt,
			&ownerID, &auth0ID, &email, &name, &ownerCreated, &ownerUp,
		); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}

		b := &domain.Budget{
			ID:          id,
			UserID:      pgToUUID(userID),
			Category:    category,
			Period:      pgDateToTime(period),
			LimitAmount: pgNumericToDecimalPtr(limitAmount),
			SpentAmount: pgNumericToDecimalPtr(spent),
			CreatedAt:   createdAt.Time,
			UpdatedAt:   updatedAt.Time,
		}
		if ownerID.Valid {
			b.User = &domain.User{
				ID:        pgToUUID(ownerID),
				Auth0ID:   auth0ID.String,
				Email:     email.String,
				Name:      pgTextToStringPtr(name),
				CreatedAt: ownerCreated.Time,
				UpdatedAt: ownerUp.Time,
			}
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}
