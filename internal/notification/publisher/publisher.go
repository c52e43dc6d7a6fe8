// Package publisher turns persisted lifecycle changes into outbox entries.
package publisher

import (
	"context"
	"fmt"

	"givebridge/internal/notification/metrics"
	"givebridge/internal/notification/models"
)

// Outbox is the write side of the notification queue.
type Outbox interface {
	Enqueue(ctx context.Context, events ...models.Event) error
}

// Publisher derives recipient events from a change and enqueues them. It
// never delivers; the dispatcher does that out of band.
type Publisher struct {
	outbox  Outbox
	metrics *metrics.Metrics
}

type Option func(*Publisher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(outbox Outbox, opts ...Option) *Publisher {
	p := &Publisher{outbox: outbox}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify enqueues the events for c and returns how many were queued.
func (p *Publisher) Notify(ctx context.Context, c models.LifecycleChange) (int, error) {
	events := models.EventsFor(c)
	if len(events) == 0 {
		return 0, nil
	}
	if err := p.outbox.Enqueue(ctx, events...); err != nil {
		p.metrics.Record(metrics.OutcomeEnqueueFailed, len(events))
		return 0, fmt.Errorf("enqueue %s notifications: %w", c.To, err)
	}
	p.metrics.Record(metrics.OutcomeEnqueued, len(events))
	return len(events), nil
}
