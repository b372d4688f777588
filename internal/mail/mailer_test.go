package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"
)

func newTestMailer(send func(ctx context.Context, msg *gomail.Message) error) *SMTPMailer {
	m := NewSMTPMailer(Config{
		Host:          "smtp.example.com",
		Port:          587,
		From:          "SmartSpend <no-reply@smartspend.app>",
		RatePerMinute: 600,
	}, zerolog.Nop())
	m.send = send
	return m
}

func TestSMTPMailer_SendMail(t *testing.T) {
	var captured *gomail.Message
	m := newTestMailer(func(ctx context.Context, msg *gomail.Message) error {
		captured = msg
		return nil
	})

	err := m.SendMail(context.Background(), " alice@example.com ", "Budget Exceeded: Food", "body text")
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, []string{"alice@example.com"}, captured.GetHeader("To"))
	assert.Equal(t, []string{"Budget Exceeded: Food"}, captured.GetHeader("Subject"))
	assert.Equal(t, []string{"SmartSpend <no-reply@smartspend.app>"}, captured.GetHeader("From"))

	var buf bytes.Buffer
	_, err = captured.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "body text")
}

func TestSMTPMailer_SendMail_EmptyRecipient(t *testing.T) {
	called := false
	m := newTestMailer(func(ctx context.Context, msg *gomail.Message) error {
		called = true
		return nil
	})

	err := m.SendMail(context.Background(), "  ", "subject", "body")
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.False(t, called)
}

func TestSMTPMailer_SendMail_TransportError(t *testing.T) {
	m := newTestMailer(func(ctx context.Context, msg *gomail.Message) error {
		return errors.New("535 authentication failed")
	})

	err := m.SendMail(context.Background(), "bob@example.com", "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bob@example.com")
	assert.Contains(t, err.Error(), "535")
}

func TestSMTPMailer_SendMail_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: 587, From: "a@b.c", RatePerMinute: 1}, zerolog.Nop())
	m.send = func(ctx context.Context, msg *gomail.Message) error { return nil }

	// The single token is consumed by the first message
	require.NoError(t, m.SendMail(context.Background(), "a@example.com", "s", "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.SendMail(ctx, "a@example.com", "s", "b")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestSMTPMailer_SendMail_AlreadyCancelled(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "127.0.0.1", Port: 1, From: "a@b.c"}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.SendMail(ctx, "a@example.com", "s", "b")
	assert.Error(t, err)
}

func TestLogMailer_SendMail(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf))

	require.NoError(t, m.SendMail(context.Background(), "carol@example.com", "Budget Nearing Limit: Food", "hello"))
	assert.Contains(t, buf.String(), "carol@example.com")
	assert.Contains(t, buf.String(), "Budget Nearing Limit: Food")

	assert.ErrorIs(t, m.SendMail(context.Background(), "", "s", "b"), ErrNoRecipient)
}

func TestBudgetAlertMessage(t *testing.T) {
	subject, body := BudgetAlertMessage("Food", "2500.00", "2000.00", true)
	assert.Equal(t, "Budget Exceeded: Food", subject)
	assert.Contains(t, body, "You have exceeded your budget for Food.")
	assert.Contains(t, body, "Spent: 2500.00 / Limit: 2000.00")
	assert.True(t, strings.HasSuffix(body, "SmartSpend Team"))

	subject, body = BudgetAlertMessage("Travel", "4600.00", "5000.00", false)
	assert.Equal(t, "Budget Nearing Limit: Travel", subject)
	assert.Contains(t, body, "You're nearing your budget for Travel.")
	assert.Contains(t, body, "Spent: 4600.00 / Limit: 5000.00")
	assert.NotContains(t, body, "exceeded")
}
