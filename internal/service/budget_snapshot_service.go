package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/util"
)

// BudgetSnapshotService reads budgets with their spent amount recomputed from the expense ledger
type BudgetSnapshotService struct {
	budgetRepo  domain.BudgetRepository
	expenseRepo domain.ExpenseRepository
	logger      zerolog.Logger
}

// NewBudgetSnapshotService creates a new BudgetSnapshotService
func NewBudgetSnapshotService(budgetRepo domain.BudgetRepository, expenseRepo domain.ExpenseRepository, logger zerolog.Logger) *BudgetSnapshotService {
	return &BudgetSnapshotService{
		budgetRepo:  budgetRepo,
		expenseRepo: expenseRepo,
		logger:      logger.With().Str("component", "budget_snapshot").Logger(),
	}
}

// SpentFor returns the total a user spent on a category during the month containing period.
// An empty category totals every expense of the user.
func (s *BudgetSnapshotService) SpentFor(ctx context.Context, userID uuid.UUID, category string, period time.Time) (decimal.Decimal, error) {
	from := util.PeriodStart(period)
	to := util.NextPeriod(from)

	spent, err := s.expenseRepo.SumSpent(ctx, userID, category, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses for %q: %w", category, err)
	}
	return spent, nil
}

// ListAllWithSpend returns every budget. Budgets in the month containing period get
// SpentAmount recomputed from the ledger in memory; nothing is written back.
// When the ledger cannot be read for a budget, its stored spent amount is kept.
func (s *BudgetSnapshotService) ListAllWithSpend(ctx context.Context, period time.Time) ([]*domain.Budget, error) {
	budgets, err := s.budgetRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	for _, b := range budgets {
		if b == nil || b.UserID == uuid.Nil || !util.SamePeriod(b.Period, period) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		spent, err := s.SpentFor(ctx, b.UserID, b.Category, b.Period)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("budget_id", b.ID).
				Msg("Failed to refresh spent amount, using stored value")
			continue
		}
		b.SpentAmount = &spent
	}

	return budgets, nil
}
