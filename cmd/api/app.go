package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/smartspend/smartspend-backend/internal/amqp"
	"github.com/smartspend/smartspend-backend/internal/config"
	"github.com/smartspend/smartspend-backend/internal/mail"
	"github.com/smartspend/smartspend-backend/internal/repository/postgres"
	"github.com/smartspend/smartspend-backend/internal/repository/storage"
	"github.com/smartspend/smartspend-backend/internal/service"
	"github.com/smartspend/smartspend-backend/internal/websocket"
)

// app holds the wired dependencies shared by the serve and sweep commands
type app struct {
	cfg                 *config.Config
	pool                *pgxpool.Pool
	userRepo            *postgres.UserRepository
	hub                 *websocket.Hub
	broker              *amqp.Publisher
	notificationService *service.NotificationService
	worker              *service.BudgetAlertWorker
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := log.Logger

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Verify database connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Msg("Connected to database")

	a := &app{cfg: cfg, pool: pool, hub: websocket.NewHub()}

	// Initialize repositories
	a.userRepo = postgres.NewUserRepository(pool)
	budgetRepo := postgres.NewBudgetRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	alertStateRepo := postgres.NewAlertStateRepository(pool)

	// Live push: websocket hub, plus the message broker when configured
	publishers := []websocket.EventPublisher{a.hub}
	if cfg.AMQP.URL != "" {
		broker, err := amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to message broker: %w", err)
		}
		a.broker = broker
		publishers = append(publishers, broker)
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("Publishing notifications to AMQP")
	}

	// Initialize services
	snapshots := service.NewBudgetSnapshotService(budgetRepo, expenseRepo, logger)
	a.notificationService = service.NewNotificationService(notificationRepo, logger)
	a.notificationService.SetEventPublisher(websocket.NewMultiPublisher(publishers...))

	dispatcher := service.NewAlertDispatcher(a.notificationService, newMailer(cfg.SMTP, logger), cfg.Alerts.ChannelTimeout, logger)

	a.worker, err = service.NewBudgetAlertWorker(snapshots, a.userRepo, dispatcher, logger, service.BudgetAlertWorkerConfig{
		Schedule: cfg.Alerts.Schedule,
		Thresholds: service.AlertThresholds{
			Near: cfg.Alerts.NearThreshold,
			Over: cfg.Alerts.OverThreshold,
		},
		Workers:    cfg.Alerts.Workers,
		RunOnStart: cfg.Alerts.RunOnStart,
		Location:   cfg.Alerts.Location,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create budget alert worker: %w", err)
	}

	if cfg.Alerts.DedupEnabled {
		a.worker.SetDeduplicator(service.NewAlertDeduplicator(alertStateRepo, logger))
	}

	if cfg.S3.Bucket != "" {
		archive, err := storage.NewS3ReportRepository(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create sweep report archive: %w", err)
		}
		a.worker.SetReportArchiver(archive)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Archiving sweep reports to S3")
	}

	return a, nil
}

// newMailer returns the SMTP mailer, or a log-only mailer when SMTP is not configured
func newMailer(cfg config.SMTPConfig, logger zerolog.Logger) service.Mailer {
	if cfg.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, budget alert emails will only be logged")
		return mail.NewLogMailer(logger)
	}
	return mail.NewSMTPMailer(mail.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Username:      cfg.Username,
		Password:      cfg.Password,
		From:          cfg.From,
		RatePerMinute: cfg.RatePerMinute,
	}, logger)
}

// Close releases the broker connection and the database pool
func (a *app) Close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close message broker connection")
		}
	}
	a.pool.Close()
}
