package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/middleware"
	"github.com/smartspend/smartspend-backend/internal/service"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Message   string `json:"message"`
	ReadFlag  bool   `json:"readFlag"`
	CreatedAt string `json:"createdAt"`
}

// UnreadCountResponse represents the unread counter response
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Message:   n.Body,
		ReadFlag:  n.ReadFlag,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toNotificationResponses(notifications []*domain.Notification) []NotificationResponse {
	response := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		response[i] = toNotificationResponse(n)
	}
	return response
}

// GetNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	notifications, err := h.notificationService.ListAll(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list notifications")
		return NewInternalError(c, "Failed to list notifications")
	}

	return c.JSON(http.StatusOK, toNotificationResponses(notifications))
}

// GetUnread handles GET /api/v1/notifications/unread
func (h *NotificationHandler) GetUnread(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	notifications, err := h.notificationService.ListUnread(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list unread notifications")
		return NewInternalError(c, "Failed to list unread notifications")
	}

	return c.JSON(http.StatusOK, toNotificationResponses(notifications))
}

// GetUnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	count, err := h.notificationService.CountUnread(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to count unread notifications")
		return NewInternalError(c, "Failed to count unread notifications")
	}

	return c.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkRead handles POST /api/v1/notifications/:id/read and POST /api/v1/notifications/mark-read/:id
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "Invalid notification ID", []ValidationError{
			{Field: "id", Message: "Must be a valid integer"},
		})
	}

	if err := h.notificationService.MarkRead(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			return NewNotFoundError(c, "Notification not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Int64("notification_id", id).Msg("Failed to mark notification read")
		return NewInternalError(c, "Failed to mark notification read")
	}

	return c.NoContent(http.StatusNoContent)
}
