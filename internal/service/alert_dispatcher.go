package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/mail"
)

// DefaultChannelTimeout bounds a single delivery attempt on one channel
const DefaultChannelTimeout = 10 * time.Second

// Mailer sends a plain-text email
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// DispatchOutcome reports what happened on each channel for one alert
type DispatchOutcome struct {
	Notification *domain.Notification
	EmailSent    bool
	Errors       []*domain.DispatchChannelError
}

// Delivered reports whether at least one channel succeeded
func (o DispatchOutcome) Delivered() bool {
	return o.Notification != nil || o.EmailSent
}

// Failed reports whether the given channel failed
func (o DispatchOutcome) Failed(channel domain.DispatchChannel) bool {
	for _, e := range o.Errors {
		if e.Channel == channel {
			return true
		}
	}
	return false
}

// AlertDispatcher delivers a budget alert as an in-app notification and as an email.
// The two channels are attempted independently.
type AlertDispatcher struct {
	notificationService *NotificationService
	mailer              Mailer
	timeout             time.Duration
	logger              zerolog.Logger
}

// NewAlertDispatcher creates a new AlertDispatcher
func NewAlertDispatcher(notificationService *NotificationService, mailer Mailer, timeout time.Duration, logger zerolog.Logger) *AlertDispatcher {
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	return &AlertDispatcher{
		notificationService: notificationService,
		mailer:              mailer,
		timeout:             timeout,
		logger:              logger.With().Str("component", "alert_dispatcher").Logger(),
	}
}

// Dispatch sends the alert on every channel. Channel failures are logged and
// recorded in the outcome, never returned.
func (d *AlertDispatcher) Dispatch(ctx context.Context, user *domain.User, category string, spent, limit decimal.Decimal, exceeded bool) DispatchOutcome {
	var outcome DispatchOutcome
	category = strings.TrimSpace(category)

	if user == nil {
		for _, ch := range []domain.DispatchChannel{domain.ChannelNotification, domain.ChannelEmail} {
			d.fail(&outcome, &domain.DispatchChannelError{Channel: ch, Category: category, Err: domain.ErrMissingUser})
		}
		return outcome
	}

	if n, err := d.sendNotification(ctx, user, category, spent, limit, exceeded); err != nil {
		d.fail(&outcome, &domain.DispatchChannelError{Channel: domain.ChannelNotification, UserID: user.ID, Category: category, Err: err})
	} else {
		outcome.Notification = n
	}

	if err := d.sendEmail(ctx, user, category, spent, limit, exceeded); err != nil {
		d.fail(&outcome, &domain.DispatchChannelError{Channel: domain.ChannelEmail, UserID: user.ID, Category: category, Err: err})
	} else {
		outcome.EmailSent = true
	}

	return outcome
}

func (d *AlertDispatcher) sendNotification(ctx context.Context, user *domain.User, category string, spent, limit decimal.Decimal, exceeded bool) (*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	title, body := BudgetAlertNotification(category, spent, limit, exceeded)
	return d.notificationService.Create(ctx, user, title, body)
}

func (d *AlertDispatcher) sendEmail(ctx context.Context, user *domain.User, category string, spent, limit decimal.Decimal, exceeded bool) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	subject, body := mail.BudgetAlertMessage(category, domain.FormatAmount(spent), domain.FormatAmount(limit), exceeded)
	return d.mailer.SendMail(ctx, user.Email, subject, body)
}

func (d *AlertDispatcher) fail(outcome *DispatchOutcome, err *domain.DispatchChannelError) {
	outcome.Errors = append(outcome.Errors, err)
	d.logger.Error().
		Err(err.Err).
		Str("channel", string(err.Channel)).
		Str("user_id", err.UserID.String()).
		Str("category", err.Category).
		Msg("Alert dispatch failed")
}
