package websocket

import (
	"context"
	"errors"
)

// EventPublisher defines the interface for publishing events to live subscribers
type EventPublisher interface {
	// Publish sends an event to every subscriber of the topic
	Publish(ctx context.Context, topic string, event Event) error
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the topic.
// It returns ErrNoSubscribers when nobody is listening.
func (h *Hub) Publish(ctx context.Context, topic string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sent, err := h.Broadcast(topic, event)
	if err != nil {
		return err
	}
	if sent == 0 {
		return ErrNoSubscribers
	}
	return nil
}

// NoOpPublisher is a publisher that does nothing (for testing or when live push is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(ctx context.Context, topic string, event Event) error { return nil }

// MultiPublisher publishes every event to all of its publishers.
// It succeeds when at least one publisher accepted the event.
type MultiPublisher struct {
	publishers []EventPublisher
}

// NewMultiPublisher creates a MultiPublisher, skipping nil publishers
func NewMultiPublisher(publishers ...EventPublisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish implements EventPublisher
func (m *MultiPublisher) Publish(ctx context.Context, topic string, event Event) error {
	if len(m.publishers) == 0 {
		return nil
	}

	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m.publishers) {
		return errors.Join(errs...)
	}
	return nil
}
