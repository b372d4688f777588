package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smartspend/smartspend-backend/internal/domain"
)

// RatioPrecision is the number of fractional digits kept when computing spent/limit
const RatioPrecision = 4

// AlertThresholds holds the utilization ratios at which a budget raises an alert
type AlertThresholds struct {
	Near decimal.Decimal
	Over decimal.Decimal
}

// DefaultAlertThresholds returns NEAR at 90% and EXCEEDED at 100%
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		Near: decimal.RequireFromString("0.90"),
		Over: decimal.RequireFromString("1.00"),
	}
}

// Validate checks that both thresholds are positive and near is below over
func (t AlertThresholds) Validate() error {
	if !t.Near.IsPositive() || !t.Over.IsPositive() {
		return fmt.Errorf("%w: alert thresholds must be positive", domain.ErrInvalidInput)
	}
	if !t.Near.LessThan(t.Over) {
		return fmt.Errorf("%w: near threshold %s must be below over threshold %s",
			domain.ErrInvalidInput, t.Near, t.Over)
	}
	return nil
}

// BudgetRatio returns spent/limit rounded half-up to RatioPrecision digits.
// It returns zero for a non-positive limit.
func BudgetRatio(spent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spent.DivRound(limit, RatioPrecision)
}

// ClassifyBudget maps a spent/limit pair to an alert level and the ratio it was
// classified on. EXCEEDED is checked before NEAR.
func ClassifyBudget(spent, limit decimal.Decimal, thresholds AlertThresholds) (domain.AlertLevel, decimal.Decimal) {
	if !limit.IsPositive() {
		return domain.AlertLevelNone, decimal.Zero
	}

	ratio := BudgetRatio(spent, limit)
	switch {
	case ratio.GreaterThanOrEqual(thresholds.Over):
		return domain.AlertLevelExceeded, ratio
	case ratio.GreaterThanOrEqual(thresholds.Near):
		return domain.AlertLevelNear, ratio
	default:
		return domain.AlertLevelNone, ratio
	}
}
