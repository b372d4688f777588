package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/smartspend/smartspend-backend/internal/websocket"
)

const (
	publishTimeout = 5 * time.Second
	connectTimeout = 5 * time.Second
	heartbeat      = 10 * time.Second
)

// channel is the subset of *amqp091.Channel used for publishing
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

// reconnect is a dial running in the background. done is closed once err is set.
type reconnect struct {
	done chan struct{}
	err  error
}

// Publisher forwards notification events to a topic exchange. The routing key is the
// event topic, so consumers bind with patterns such as "notifications.*".
type Publisher struct {
	url      string
	exchange string
	logger   zerolog.Logger
	connect  func(timeout time.Duration) (*amqp091.Connection, channel, error)

	mu      sync.Mutex
	conn    *amqp091.Connection
	ch      channel
	pending *reconnect
	closed  bool
}

var _ websocket.EventPublisher = (*Publisher)(nil)

// NewPublisher dials the broker and declares the exchange
func NewPublisher(url, exchange string, logger zerolog.Logger) (*Publisher, error) {
	p := &Publisher{
		url:      url,
		exchange: exchange,
		logger:   logger.With().Str("component", "amqp_publisher").Logger(),
	}
	p.connect = p.dial

	conn, ch, err := p.connect(connectTimeout)
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.logger.Info().Str("exchange", p.exchange).Msg("Connected to AMQP broker")
	return p, nil
}

func (p *Publisher) dial(timeout time.Duration) (*amqp091.Connection, channel, error) {
	conn, err := amqp091.DialConfig(p.url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return conn, ch, nil
}

// openChannel returns the live channel, starting a background reconnect when there
// is none. Waiting for the reconnect is bounded by ctx; p.mu is never held while waiting.
func (p *Publisher) openChannel(ctx context.Context) (channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, amqp091.ErrClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.pending == nil {
		p.closeLocked()
		p.pending = &reconnect{done: make(chan struct{})}
		go p.redial(p.pending)
	}
	r := p.pending
	p.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("reconnect AMQP: %w", ctx.Err())
	}
	if r.err != nil {
		return nil, r.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil, amqp091.ErrClosed
	}
	return p.ch, nil
}

func (p *Publisher) redial(r *reconnect) {
	conn, ch, err := p.connect(connectTimeout)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer close(r.done)
	p.pending = nil
	r.err = err
	if err != nil {
		p.logger.Warn().Err(err).Msg("AMQP reconnect failed")
		return
	}
	if p.closed {
		if ch != nil {
			ch.Close()
		}
		if conn != nil {
			conn.Close()
		}
		r.err = amqp091.ErrClosed
		return
	}
	p.conn, p.ch = conn, ch
	p.logger.Info().Str("exchange", p.exchange).Msg("Reconnected to AMQP broker")
}

// Publish implements websocket.EventPublisher
func (p *Publisher) Publish(ctx context.Context, topic string, event websocket.Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.openChannel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		p.exchange, // exchange
		topic,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.Timestamp,
			Type:         event.Type,
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			p.mu.Lock()
			if p.ch == ch {
				p.closeLocked()
			}
			p.mu.Unlock()
		}
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("routing_key", topic).
		Str("event_type", event.Type).
		Msg("Published event")
	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// isConnectionError reports whether err means the broker connection is gone
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
