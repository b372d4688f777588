package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartspend/smartspend-backend/internal/domain"
)

// AlertStateRepository implements domain.AlertStateRepository using PostgreSQL
type AlertStateRepository struct {
	pool *pgxpool.Pool
}

// NewAlertStateRepository creates a new AlertStateRepository
func NewAlertStateRepository(pool *pgxpool.Pool) *AlertStateRepository {
	return &AlertStateRepository{pool: pool}
}

// Get returns the last dispatched level for the key
func (r *AlertStateRepository) Get(ctx context.Context, key domain.AlertKey) (*domain.AlertState, error) {
	var (
		level     string
		updatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx,
		`SELECT level, updated_at FROM budget_alert_states
		 WHERE user_id = $1 AND category = $2 AND period = $3`,
		uuidToPg(key.UserID), key.Category, timeToPgDate(key.Period),
	).Scan(&level, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertStateNotFound
		}
		return nil, fmt.Errorf("get alert state: %w", err)
	}
	return &domain.AlertState{
		Key:       key,
		Level:     domain.AlertLevel(level),
		UpdatedAt: updatedAt.Time,
	}, nil
}

// Upsert stores the level for the key, replacing any previous one
func (r *AlertStateRepository) Upsert(ctx context.Context, state *domain.AlertState) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO budget_alert_states (user_id, category, period, level, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, category, period)
		 DO UPDATE SET level = EXCLUDED.level, updated_at = EXCLUDED.updated_at`,
		uuidToPg(state.Key.UserID), state.Key.Category, timeToPgDate(state.Key.Period),
		string(state.Level), pgtype.Timestamptz{Time: state.UpdatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("upsert alert state: %w", err)
	}
	return nil
}

// Delete removes the state for the key. Deleting a missing key is not an error.
func (r *AlertStateRepository) Delete(ctx context.Context, key domain.AlertKey) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM budget_alert_states WHERE user_id = $1 AND category = $2 AND period = $3`,
		uuidToPg(key.UserID), key.Category, timeToPgDate(key.Period))
	if err != nil {
		return fmt.Errorf("delete alert state: %w", err)
	}
	return nil
}
