package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertLevel classifies a budget's utilization
type AlertLevel string

const (
	AlertLevelNone     AlertLevel = "NONE"
	AlertLevelNear     AlertLevel = "NEAR"
	AlertLevelExceeded AlertLevel = "EXCEEDED"
)

// Severity orders levels from NONE (0) to EXCEEDED (2)
func (l AlertLevel) Severity() int {
	switch l {
	case AlertLevelExceeded:
		return 2
	case AlertLevelNear:
		return 1
	default:
		return 0
	}
}

// AlertEvent is the result of classifying one budget during one sweep
type AlertEvent struct {
	BudgetID int64
	User     *User
	Category string
	Period   time.Time
	Ratio    decimal.Decimal
	Level    AlertLevel
	Spent    decimal.Decimal
	Limit    decimal.Decimal
}

// Exceeded reports whether the event is for a budget over its limit
func (e AlertEvent) Exceeded() bool {
	return e.Level == AlertLevelExceeded
}

// AlertKey identifies the alert state of a (user, category, period) triple
type AlertKey struct {
	UserID   uuid.UUID
	Category string
	Period   time.Time
}

// NewAlertKey normalizes the category so keys match case-insensitively
func NewAlertKey(userID uuid.UUID, category string, period time.Time) AlertKey {
	return AlertKey{
		UserID:   userID,
		Category: strings.ToLower(strings.TrimSpace(category)),
		Period:   period,
	}
}

// String renders the key as user|category|YYYY-MM
func (k AlertKey) String() string {
	return k.UserID.String() + "|" + k.Category + "|" + k.Period.Format("2006-01")
}

// AlertState is the last level dispatched for an alert key
type AlertState struct {
	Key       AlertKey
	Level     AlertLevel
	UpdatedAt time.Time
}

type AlertStateRepository interface {
	// Get returns ErrAlertStateNotFound when nothing was dispatched for the key
	Get(ctx context.Context, key AlertKey) (*AlertState, error)
	Upsert(ctx context.Context, state *AlertState) error
	Delete(ctx context.Context, key AlertKey) error
}
