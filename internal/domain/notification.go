package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification is a persisted, user-visible message
type Notification struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ReadFlag  bool      `json:"readFlag"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationPayload is the lightweight projection pushed to live subscribers
type NotificationPayload struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
	UserEmail string `json:"userEmail"`
}

// NewNotificationPayload projects a saved notification for its owner
func NewNotificationPayload(n *Notification, user *User) NotificationPayload {
	payload := NotificationPayload{
		ID:    n.ID,
		Title: n.Title,
		Body:  n.Body,
	}
	if !n.CreatedAt.IsZero() {
		payload.CreatedAt = n.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if user != nil {
		payload.UserEmail = user.Email
	}
	return payload
}

// NotificationTopic returns the live subscription topic for a user
func NotificationTopic(userID uuid.UUID) string {
	return "notifications." + userID.String()
}

type NotificationRepository interface {
	// Create persists the notification and assigns its ID and creation time
	Create(ctx context.Context, notification *Notification) (*Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	ListUnreadByUser(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	// MarkRead returns ErrNotificationNotFound when the notification is absent or owned by another user
	MarkRead(ctx context.Context, userID uuid.UUID, id int64) error
}
