package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/websocket"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	mu        sync.Mutex
	Users     map[string]*domain.User
	ByID      map[uuid.UUID]*domain.User
	GetByIDFn func(id uuid.UUID) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
		ByID:  make(map[uuid.UUID]*domain.User),
	}
}

// AddUser adds a user to the mock repository
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ByID[user.ID] = user
	if user.Auth0ID != "" {
		m.Users[user.Auth0ID] = user
	}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetUserIDByAuth0ID implements websocket.UserLookup
func (m *MockUserRepository) GetUserIDByAuth0ID(ctx context.Context, auth0ID string) (uuid.UUID, error) {
	user, err := m.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// MockBudgetRepository is a mock implementation of domain.BudgetRepository
type MockBudgetRepository struct {
	mu        sync.Mutex
	Budgets   []*domain.Budget
	ListAllFn func() ([]*domain.Budget, error)
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{}
}

// AddBudget adds a budget to the mock repository
func (m *MockBudgetRepository) AddBudget(budget *domain.Budget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Budgets = append(m.Budgets, budget)
}

// ListAll returns copies of every stored budget
func (m *MockBudgetRepository) ListAll(ctx context.Context) ([]*domain.Budget, error) {
	if m.ListAllFn != nil {
		return m.ListAllFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Budget, 0, len(m.Budgets))
	for _, b := range m.Budgets {
		copied := *b
		result = append(result, &copied)
	}
	return result, nil
}

// MockExpenseRepository is a mock implementation of domain.ExpenseRepository
type MockExpenseRepository struct {
	mu         sync.Mutex
	Expenses   []*domain.Expense
	SumSpentFn func(userID uuid.UUID, category string, from, to time.Time) (decimal.Decimal, error)
}

// NewMockExpenseRepository creates a new MockExpenseRepository
func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{}
}

// AddExpense adds an expense to the mock repository
func (m *MockExpenseRepository) AddExpense(expense *domain.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expenses = append(m.Expenses, expense)
}

// SumSpent totals matching expenses in [from, to)
func (m *MockExpenseRepository) SumSpent(ctx context.Context, userID uuid.UUID, category string, from, to time.Time) (decimal.Decimal, error) {
	if m.SumSpentFn != nil {
		return m.SumSpentFn(userID, category, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, e := range m.Expenses {
		if e.UserID != userID {
			continue
		}
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

// MockNotificationRepository is a mock implementation of domain.NotificationRepository
type MockNotificationRepository struct {
	mu            sync.Mutex
	Notifications map[int64]*domain.Notification
	nextID        int64
	CreateFn      func(notification *domain.Notification) (*domain.Notification, error)
	MarkReadFn    func(userID uuid.UUID, id int64) error
}

// NewMockNotificationRepository creates a new MockNotificationRepository
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		Notifications: make(map[int64]*domain.Notification),
		nextID:        1,
	}
}

// Create stores the notification and assigns its ID and creation time
func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	if m.CreateFn != nil {
		return m.CreateFn(notification)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	notification.ID = m.nextID
	m.nextID++
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	m.Notifications[notification.ID] = notification
	return notification, nil
}

// AddNotification stores a notification as-is
func (m *MockNotificationRepository) AddNotification(notification *domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications[notification.ID] = notification
	if notification.ID >= m.nextID {
		m.nextID = notification.ID + 1
	}
}

func (m *MockNotificationRepository) list(userID uuid.UUID, unreadOnly bool) []*domain.Notification {
	result := make([]*domain.Notification, 0)
	for _, n := range m.Notifications {
		if n.UserID != userID || (unreadOnly && n.ReadFlag) {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// ListByUser returns the user's notifications, newest first
func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(userID, false), nil
}

// ListUnreadByUser returns the user's unread notifications, newest first
func (m *MockNotificationRepository) ListUnreadByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(userID, true), nil
}

// CountUnread counts the user's unread notifications
func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.list(userID, true))), nil
}

// MarkRead flags a notification owned by the user as read
func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, id int64) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(userID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Notifications[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotificationNotFound
	}
	n.ReadFlag = true
	return nil
}

// ForUser returns every stored notification of a user
func (m *MockNotificationRepository) ForUser(userID uuid.UUID) []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(userID, false)
}

// Count returns the number of stored notifications
func (m *MockNotificationRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notifications)
}

// MockAlertStateRepository is a mock implementation of domain.AlertStateRepository
type MockAlertStateRepository struct {
	mu       sync.Mutex
	States   map[string]*domain.AlertState
	GetFn    func(key domain.AlertKey) (*domain.AlertState, error)
	UpsertFn func(state *domain.AlertState) error
	Deletes  int
}

// NewMockAlertStateRepository creates a new MockAlertStateRepository
func NewMockAlertStateRepository() *MockAlertStateRepository {
	return &MockAlertStateRepository{
		States: make(map[string]*domain.AlertState),
	}
}

// Get returns the stored state for the key
func (m *MockAlertStateRepository) Get(ctx context.Context, key domain.AlertKey) (*domain.AlertState, error) {
	if m.GetFn != nil {
		return m.GetFn(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.States[key.String()]; ok {
		copied := *state
		return &copied, nil
	}
	return nil, domain.ErrAlertStateNotFound
}

// Upsert stores the state, replacing any previous one for the key
func (m *MockAlertStateRepository) Upsert(ctx context.Context, state *domain.AlertState) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.States[state.Key.String()] = &copied
	return nil
}

// Delete removes the state for the key, if any
func (m *MockAlertStateRepository) Delete(ctx context.Context, key domain.AlertKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.States, key.String())
	return nil
}

// PublishedEvent is an event captured by MockPublisher
type PublishedEvent struct {
	Topic string
	Event websocket.Event
}

// MockPublisher is a websocket.EventPublisher that records published events
type MockPublisher struct {
	mu        sync.Mutex
	Events    []PublishedEvent
	PublishFn func(topic string, event websocket.Event) error
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event, then returns PublishFn's result when set
func (m *MockPublisher) Publish(ctx context.Context, topic string, event websocket.Event) error {
	m.mu.Lock()
	m.Events = append(m.Events, PublishedEvent{Topic: topic, Event: event})
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(topic, event)
	}
	return nil
}

// Published returns a copy of the recorded events
func (m *MockPublisher) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]PublishedEvent, len(m.Events))
	copy(copied, m.Events)
	return copied
}

// SentMail is a message captured by MockMailer
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// MockMailer records outbound mail
type MockMailer struct {
	mu         sync.Mutex
	Sent       []SentMail
	SendMailFn func(ctx context.Context, to, subject, body string) error
}

// NewMockMailer creates a new MockMailer
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// SendMail records the message unless SendMailFn fails
func (m *MockMailer) SendMail(ctx context.Context, to, subject, body string) error {
	if m.SendMailFn != nil {
		if err := m.SendMailFn(ctx, to, subject, body); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the recorded mail
func (m *MockMailer) Messages() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]SentMail, len(m.Sent))
	copy(copied, m.Sent)
	return copied
}
