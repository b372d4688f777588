package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/smartspend/smartspend-backend/internal/config"
	"github.com/smartspend/smartspend-backend/internal/handler"
	"github.com/smartspend/smartspend-backend/internal/middleware"
	"github.com/smartspend/smartspend-backend/internal/repository/postgres"
	"github.com/smartspend/smartspend-backend/internal/websocket"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// runServe starts the HTTP API and the scheduled worker, and blocks until SIGINT/SIGTERM
func runServe(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, a.userRepo)
	if err != nil {
		return fmt.Errorf("create auth middleware: %w", err)
	}
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, a.userRepo)
	if err != nil {
		return fmt.Errorf("create websocket token validator: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	e := newEcho(cfg)
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, cfg.AdminToken, handler.Handlers{
		Health:       handler.NewHealthHandler(a.pool),
		Notification: handler.NewNotificationHandler(a.notificationService),
		Alert:        handler.NewAlertHandler(a.worker),
		WebSocket:    handler.NewWebSocketHandler(a.hub, wsValidator, cfg.CORSOrigins),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	a.worker.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		a.worker.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}

// runSweep evaluates every budget once, dispatches due alerts and exits
func runSweep(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.worker.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("budget alert sweep: %w", err)
	}

	log.Info().
		Str("period", result.Period).
		Int("budgets", result.Budgets).
		Int("near", result.Near).
		Int("exceeded", result.Exceeded).
		Int("suppressed", result.Suppressed).
		Int("errors", result.Errors).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Sweep finished")
	return nil
}

// runMigrate applies pending schema migrations
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Info().Msg("Database migrations applied")
	return nil
}

func newEcho(cfg *config.Config) *echo.Echo {
	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.AdminTokenHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	return e
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
