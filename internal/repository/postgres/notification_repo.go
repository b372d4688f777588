package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartspend/smartspend-backend/internal/domain"
)

// NotificationRepository implements domain.NotificationRepository using PostgreSQL
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification and fills in its ID and creation time
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	var createdAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, title, body, read_flag)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		uuidToPg(n.UserID), n.Title, n.Body, n.ReadFlag,
	).Scan(&n.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	n.CreatedAt = createdAt.Time
	return n, nil
}

// ListByUser returns all of the user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return r.list(ctx,
		`SELECT id, user_id, title, body, read_flag, created_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`, userID)
}

// ListUnreadByUser returns the user's unread notifications, newest first
func (r *NotificationRepository) ListUnreadByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return r.list(ctx,
		`SELECT id, user_id, title, body, read_flag, created_at
		 FROM notifications WHERE user_id = $1 AND read_flag = FALSE
		 ORDER BY created_at DESC, id DESC`, userID)
}

// CountUnread counts the user's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_flag = FALSE`,
		uuidToPg(userID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags a notification as read when it belongs to the user
func (r *NotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_flag = TRUE WHERE id = $1 AND user_id = $2`,
		id, uuidToPg(userID))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) list(ctx context.Context, query string, userID uuid.UUID) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, query, uuidToPg(userID))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	notifications, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}
	return notifications, nil
}

func scanNotification(row pgx.CollectableRow) (*domain.Notification, error) {
	var (
		n         domain.Notification
		userID    pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&n.ID, &userID, &n.Title, &n.Body, &n.ReadFlag, &createdAt); err != nil {
		return nil, err
	}
	n.UserID = pgToUUID(userID)
	n.CreatedAt = createdAt.Time
	return &n, nil
}
