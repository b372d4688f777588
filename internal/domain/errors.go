package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInternalError        = errors.New("internal error")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAlertStateNotFound   = errors.New("alert state not found")
)

// Budget evaluation errors. Each one skips the budget for the current sweep.
var (
	ErrMissingUser      = errors.New("budget has no resolvable user")
	ErrNonPositiveLimit = errors.New("budget limit is not positive")
	ErrMalformedAmount  = errors.New("budget amount is malformed")
)

// BudgetSkipError marks a budget that was skipped without raising an alert
type BudgetSkipError struct {
	BudgetID int64
	Err      error
}

func (e *BudgetSkipError) Error() string {
	return fmt.Sprintf("budget %d skipped: %v", e.BudgetID, e.Err)
}

func (e *BudgetSkipError) Unwrap() error {
	return e.Err
}

// DispatchChannel identifies an alert delivery mechanism
type DispatchChannel string

const (
	ChannelNotification DispatchChannel = "notification"
	ChannelPush         DispatchChannel = "push"
	ChannelEmail        DispatchChannel = "email"
)

// DispatchChannelError describes a failed delivery on one channel
type DispatchChannelError struct {
	Channel  DispatchChannel
	UserID   uuid.UUID
	Category string
	Err      error
}

func (e *DispatchChannelError) Error() string {
	return fmt.Sprintf("%s dispatch for user %s category %q failed: %v", e.Channel, e.UserID, e.Category, e.Err)
}

func (e *DispatchChannelError) Unwrap() error {
	return e.Err
}
