package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/websocket"
)

// NotificationService persists user notifications and pushes them to live subscribers
type NotificationService struct {
	notificationRepo domain.NotificationRepository
	eventPublisher   websocket.EventPublisher
	logger           zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo domain.NotificationRepository, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger.With().Str("component", "notification_service").Logger(),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *NotificationService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent pushes an event to the user's topic. Failures are logged and swallowed.
func (s *NotificationService) publishEvent(ctx context.Context, userID uuid.UUID, event websocket.Event) {
	if s.eventPublisher == nil {
		return
	}
	topic := domain.NotificationTopic(userID)
	if err := s.eventPublisher.Publish(ctx, topic, event); err != nil {
		if errors.Is(err, websocket.ErrNoSubscribers) {
			s.logger.Debug().Str("topic", topic).Msg("No live subscribers for notification")
			return
		}
		s.logger.Warn().
			Err(&domain.DispatchChannelError{Channel: domain.ChannelPush, UserID: userID, Err: err}).
			Str("topic", topic).
			Str("event_type", event.Type).
			Msg("Failed to push notification event")
	}
}

// Create saves a notification for the user, then pushes it to the user's live topic.
// A push failure never fails the call once the notification is saved.
func (s *NotificationService) Create(ctx context.Context, user *domain.User, title, body string) (*domain.Notification, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, domain.ErrMissingUser
	}

	saved, err := s.notificationRepo.Create(ctx, &domain.Notification{
		UserID: user.ID,
		Title:  title,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	s.publishEvent(ctx, user.ID, websocket.NotificationCreated(domain.NewNotificationPayload(saved, user)))
	return saved, nil
}

// ListAll returns every notification of the user, newest first
func (s *NotificationService) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID)
}

// ListUnread returns the user's unread notifications, newest first
func (s *NotificationService) ListUnread(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return s.notificationRepo.ListUnreadByUser(ctx, userID)
}

// CountUnread returns how many unread notifications the user has
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkRead flags one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, id int64) error {
	if id <= 0 {
		return domain.ErrNotificationNotFound
	}
	if err := s.notificationRepo.MarkRead(ctx, userID, id); err != nil {
		return err
	}

	s.publishEvent(ctx, userID, websocket.NotificationRead(map[string]interface{}{"id": id}))
	return nil
}

// BudgetAlertNotification builds the title and body of an in-app budget alert
func BudgetAlertNotification(category string, spent, limit decimal.Decimal, exceeded bool) (string, string) {
	category = strings.TrimSpace(category)
	if exceeded {
		return "Budget exceeded: " + category,
			fmt.Sprintf("You exceeded the budget for %s - spent %s / %s",
				category, domain.FormatAmount(spent), domain.FormatAmount(limit))
	}
	return "Budget nearing limit: " + category,
		fmt.Sprintf("You're nearing your budget for %s - spent %s / %s",
			category, domain.FormatAmount(spent), domain.FormatAmount(limit))
}
