package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/smartspend/smartspend-backend/internal/middleware"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Health       *HealthHandler
	Notification *NotificationHandler
	Alert        *AlertHandler
	WebSocket    *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, adminToken string, h Handlers) {
	e.GET("/health", h.Health.Health)

	// WebSocket authenticates via ?token= since browsers cannot set headers on upgrade
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1")

	// Notification routes (protected)
	notifications := api.Group("/notifications")
	notifications.Use(authMiddleware.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	notifications.GET("", h.Notification.GetNotifications)
	notifications.GET("/unread", h.Notification.GetUnread)
	notifications.GET("/unread-count", h.Notification.GetUnreadCount)
	notifications.POST("/:id/read", h.Notification.MarkRead)
	notifications.POST("/mark-read/:id", h.Notification.MarkRead)

	// Operator routes (admin token)
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdminToken(adminToken))
	admin.POST("/alerts/sweep", h.Alert.TriggerSweep)
}
