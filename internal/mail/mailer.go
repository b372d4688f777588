package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	gomail "gopkg.in/mail.v2"
)

// ErrNoRecipient is returned when a message has no recipient address
var ErrNoRecipient = errors.New("mail recipient is empty")

// Config holds SMTP settings
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	RatePerMinute int
}

// SMTPMailer sends plain-text mail through an SMTP server, throttled to a fixed rate
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	limiter *rate.Limiter
	logger  zerolog.Logger
	send    func(ctx context.Context, msg *gomail.Message) error
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(cfg Config, logger zerolog.Logger) *SMTPMailer {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	m := &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:  logger.With().Str("component", "smtp_mailer").Logger(),
	}
	m.send = m.dialAndSend
	return m
}

// SendMail delivers one message. It waits for the rate limiter and gives up when ctx is done.
func (m *SMTPMailer) SendMail(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limit: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	m.logger.Debug().Str("to", to).Str("subject", subject).Msg("Mail sent")
	return nil
}

// dialAndSend runs the blocking SMTP exchange and stops waiting once ctx is done
func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *gomail.Message) error {
	dialer := *m.dialer
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Timeout = time.Until(deadline)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- dialer.DialAndSend(msg)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogMailer writes messages to the log instead of sending them. Used when SMTP is not configured.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a new LogMailer
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// SendMail logs the message
func (m *LogMailer) SendMail(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	m.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("SMTP not configured, mail logged only")
	return nil
}
