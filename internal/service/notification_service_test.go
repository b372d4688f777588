package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/testutil"
	"github.com/smartspend/smartspend-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotificationService() (*NotificationService, *testutil.MockNotificationRepository, *testutil.MockPublisher) {
	repo := testutil.NewMockNotificationRepository()
	publisher := testutil.NewMockPublisher()
	service := NewNotificationService(repo, zerolog.Nop())
	service.SetEventPublisher(publisher)
	return service, repo, publisher
}

func newTestUser(email string) *domain.User {
	return &domain.User{ID: uuid.New(), Auth0ID: "auth0|" + email, Email: email}
}

func TestNotificationService_Create(t *testing.T) {
	service, repo, publisher := setupNotificationService()
	user := newTestUser("alice@example.com")

	n, err := service.Create(context.Background(), user, "Budget exceeded: Food", "You exceeded the budget for Food - spent 2500.00 / 2000.00")
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.False(t, n.ReadFlag)
	assert.Equal(t, user.ID, n.UserID)
	assert.Equal(t, 1, repo.Count())

	events := publisher.Published()
	require.Len(t, events, 1)
	assert.Equal(t, "notifications."+user.ID.String(), events[0].Topic)
	assert.Equal(t, "notification.created", events[0].Event.Type)

	payload, ok := events[0].Event.Payload.(domain.NotificationPayload)
	require.True(t, ok)
	assert.Equal(t, n.ID, payload.ID)
	assert.Equal(t, "Budget exceeded: Food", payload.Title)
	assert.Equal(t, "alice@example.com", payload.UserEmail)
	assert.NotEmpty(t, payload.CreatedAt)
}

func TestNotificationService_Create_PushFailureIsSwallowed(t *testing.T) {
	service, repo, publisher := setupNotificationService()
	publisher.PublishFn = func(topic string, event websocket.Event) error {
		return errors.New("transport closed")
	}

	n, err := service.Create(context.Background(), newTestUser("bob@example.com"), "title", "body")
	require.NoError(t, err)
	assert.NotNil(t, n)
	assert.Equal(t, 1, repo.Count())
	assert.Len(t, publisher.Published(), 1)
}

func TestNotificationService_Create_NoSubscribers(t *testing.T) {
	repo := testutil.NewMockNotificationRepository()
	service := NewNotificationService(repo, zerolog.Nop())
	service.SetEventPublisher(websocket.NewHub())

	_, err := service.Create(context.Background(), newTestUser("carol@example.com"), "title", "body")
	assert.NoError(t, err)
}

func TestNotificationService_Create_SaveFailure(t *testing.T) {
	service, repo, publisher := setupNotificationService()
	repo.CreateFn = func(notification *domain.Notification) (*domain.Notification, error) {
		return nil, errors.New("disk full")
	}

	n, err := service.Create(context.Background(), newTestUser("dave@example.com"), "title", "body")
	assert.Error(t, err)
	assert.Nil(t, n)
	assert.Empty(t, publisher.Published(), "nothing is pushed when the save fails")
}

func TestNotificationService_Create_MissingUser(t *testing.T) {
	service, _, _ := setupNotificationService()

	_, err := service.Create(context.Background(), nil, "title", "body")
	assert.ErrorIs(t, err, domain.ErrMissingUser)
}

func TestNotificationService_ListAndCount(t *testing.T) {
	service, repo, _ := setupNotificationService()
	userID := uuid.New()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	repo.AddNotification(&domain.Notification{ID: 1, UserID: userID, Title: "old", CreatedAt: base})
	repo.AddNotification(&domain.Notification{ID: 2, UserID: userID, Title: "new", CreatedAt: base.Add(time.Hour)})
	repo.AddNotification(&domain.Notification{ID: 3, UserID: userID, Title: "read", ReadFlag: true, CreatedAt: base.Add(2 * time.Hour)})
	repo.AddNotification(&domain.Notification{ID: 4, UserID: uuid.New(), Title: "someone else", CreatedAt: base})

	all, err := service.ListAll(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)

	unread, err := service.ListUnread(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "new", unread[0].Title)

	count, err := service.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNotificationService_MarkRead(t *testing.T) {
	service, repo, publisher := setupNotificationService()
	owner := uuid.New()
	repo.AddNotification(&domain.Notification{ID: 7, UserID: owner, Title: "alert"})

	t.Run("other user cannot mark", func(t *testing.T) {
		err := service.MarkRead(context.Background(), uuid.New(), 7)
		assert.ErrorIs(t, err, domain.ErrNotificationNotFound)
		assert.False(t, repo.Notifications[7].ReadFlag)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, service.MarkRead(context.Background(), owner, 99), domain.ErrNotificationNotFound)
		assert.ErrorIs(t, service.MarkRead(context.Background(), owner, 0), domain.ErrNotificationNotFound)
	})

	t.Run("owner marks read", func(t *testing.T) {
		require.NoError(t, service.MarkRead(context.Background(), owner, 7))
		assert.True(t, repo.Notifications[7].ReadFlag)

		events := publisher.Published()
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, "notification.read", last.Event.Type)
		assert.Equal(t, domain.NotificationTopic(owner), last.Topic)
	})
}

func TestBudgetAlertNotification(t *testing.T) {
	title, body := BudgetAlertNotification("Food", dec("4600"), dec("5000"), false)
	assert.Equal(t, "Budget nearing limit: Food", title)
	assert.Equal(t, "You're nearing your budget for Food - spent 4600.00 / 5000.00", body)

	title, body = BudgetAlertNotification("Travel", dec("2500"), dec("2000"), true)
	assert.Equal(t, "Budget exceeded: Travel", title)
	assert.Equal(t, "You exceeded the budget for Travel - spent 2500.00 / 2000.00", body)
}
