package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port        string
	CORSOrigins []string
	Env         string
	AdminToken  string

	Alerts AlertConfig
	SMTP   SMTPConfig
	AMQP   AMQPConfig

	// S3 archive for sweep reports
	S3 S3Config
}

// AlertConfig holds budget alert sweep configuration
type AlertConfig struct {
	Schedule       string
	NearThreshold  decimal.Decimal
	OverThreshold  decimal.Decimal
	ChannelTimeout time.Duration
	Workers        int
	DedupEnabled   bool
	RunOnStart     bool
	Location       *time.Location
}

// SMTPConfig holds outbound mail settings. An empty host disables SMTP delivery.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	RatePerMinute int
}

// AMQPConfig holds the optional message broker used to fan notifications out
type AMQPConfig struct {
	URL      string
	Exchange string
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	alerts, err := loadAlertConfig()
	if err != nil {
		return nil, err
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	smtpRate, err := getEnvInt("SMTP_RATE_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		AdminToken:    getEnv("ADMIN_TOKEN", ""),
		Alerts:        alerts,
		SMTP: SMTPConfig{
			Host:          getEnv("SMTP_HOST", ""),
			Port:          smtpPort,
			Username:      getEnv("SMTP_USERNAME", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			From:          getEnv("SMTP_FROM", "SmartSpend <no-reply@smartspend.app>"),
			RatePerMinute: smtpRate,
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "smartspend.notifications"),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("REPORT_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadAlertConfig() (AlertConfig, error) {
	near, err := getEnvDecimal("ALERT_NEAR_THRESHOLD", "0.90")
	if err != nil {
		return AlertConfig{}, err
	}
	over, err := getEnvDecimal("ALERT_OVER_THRESHOLD", "1.00")
	if err != nil {
		return AlertConfig{}, err
	}
	timeout, err := getEnvDuration("ALERT_CHANNEL_TIMEOUT", 10*time.Second)
	if err != nil {
		return AlertConfig{}, err
	}
	workers, err := getEnvInt("ALERT_WORKERS", 1)
	if err != nil {
		return AlertConfig{}, err
	}
	dedup, err := getEnvBool("ALERT_DEDUP_ENABLED", true)
	if err != nil {
		return AlertConfig{}, err
	}
	runOnStart, err := getEnvBool("ALERT_RUN_ON_START", false)
	if err != nil {
		return AlertConfig{}, err
	}
	loc, err := time.LoadLocation(getEnv("ALERT_TIMEZONE", "UTC"))
	if err != nil {
		return AlertConfig{}, fmt.Errorf("ALERT_TIMEZONE: %w", err)
	}

	return AlertConfig{
		Schedule:       getEnv("ALERT_SCHEDULE", "0 * * * *"),
		NearThreshold:  near,
		OverThreshold:  over,
		ChannelTimeout: timeout,
		Workers:        workers,
		DedupEnabled:   dedup,
		RunOnStart:     runOnStart,
		Location:       loc,
	}, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if _, err := cron.ParseStandard(c.Alerts.Schedule); err != nil {
		return fmt.Errorf("ALERT_SCHEDULE is invalid: %w", err)
	}
	if !c.Alerts.NearThreshold.IsPositive() || !c.Alerts.OverThreshold.IsPositive() {
		return fmt.Errorf("alert thresholds must be positive")
	}
	if !c.Alerts.NearThreshold.LessThan(c.Alerts.OverThreshold) {
		return fmt.Errorf("ALERT_NEAR_THRESHOLD must be below ALERT_OVER_THRESHOLD")
	}
	if c.Alerts.Workers < 1 {
		return fmt.Errorf("ALERT_WORKERS must be at least 1")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal: %w", key, err)
	}
	return d, nil
}
