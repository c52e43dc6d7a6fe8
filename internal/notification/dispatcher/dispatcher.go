// Package dispatcher drains the notification outbox in the background.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"givebridge/internal/notification/metrics"
	"givebridge/internal/notification/models"
	"givebridge/internal/notification/sender"
	id "givebridge/pkg/domain"
)

// Outbox is the queue the dispatcher drains.
type Outbox interface {
	Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.Entry, error)
	MarkDelivered(ctx context.Context, eventID id.NotificationID) error
	MarkFailed(ctx context.Context, eventID id.NotificationID, plan models.RetryPlan) error
}

// Config tunes polling and the retry policy.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryDelay   time.Duration
	Lease        time.Duration
	SendTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = 2 * c.SendTimeout
	}
	return c
}

// Dispatcher polls the outbox, delivers each claimed entry through the
// sender, deletes it on success and reschedules it on failure. Entries whose
// attempts reach MaxAttempts are parked as exhausted.
type Dispatcher struct {
	outbox  Outbox
	sender  sender.Sender
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(outbox Outbox, s sender.Sender, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		outbox: outbox,
		sender: s,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "notification dispatcher started",
		"poll_interval", d.cfg.PollInterval.String(),
		"batch_size", d.cfg.BatchSize,
		"max_attempts", d.cfg.MaxAttempts,
	)
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopped")
			return nil
		case <-ticker.C:
			for {
				n, err := d.ProcessBatch(ctx)
				if err != nil || n < d.cfg.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// ProcessBatch handles one claimed batch and returns how many entries it saw.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := d.outbox.Claim(ctx, d.now(), d.cfg.BatchSize, d.cfg.Lease)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to claim outbox entries", "error", err)
		return 0, err
	}
	for i := range entries {
		d.deliver(ctx, &entries[i])
	}
	return len(entries), nil
}

func (d *Dispatcher) deliver(ctx context.Context, entry *models.Entry) {
	ev := entry.Event
	start := time.Now()
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err := d.sender.Send(sendCtx, ev)
	cancel()
	d.metrics.ObserveDelivery(start)

	if err == nil {
		if err := d.outbox.MarkDelivered(ctx, ev.ID); err != nil {
			d.logger.ErrorContext(ctx, "failed to remove delivered notification",
				"notification_id", ev.ID.String(),
				"error", err,
			)
		}
		d.metrics.Record(metrics.OutcomeDelivered, 1)
		return
	}

	plan := entry.PlanRetry(err, d.now(), d.cfg.RetryDelay, d.cfg.MaxAttempts)
	if markErr := d.outbox.MarkFailed(ctx, ev.ID, plan); markErr != nil {
		d.logger.ErrorContext(ctx, "failed to record notification failure",
			"notification_id", ev.ID.String(),
			"error", markErr,
		)
	}

	if plan.Exhausted {
		d.logger.ErrorContext(ctx, "notification delivery exhausted",
			"notification_id", ev.ID.String(),
			"event", ev.Type.String(),
			"donation_id", ev.DonationID.String(),
			"attempts", plan.Attempts,
			"error", err,
		)
		d.metrics.Record(metrics.OutcomeExhausted, 1)
		return
	}
	d.logger.WarnContext(ctx, "notification delivery failed, retry scheduled",
		"notification_id", ev.ID.String(),
		"event", ev.Type.String(),
		"attempts", plan.Attempts,
		"next_attempt_at", plan.NextAttemptAt,
		"error", err,
	)
	d.metrics.Record(metrics.OutcomeRetried, 1)
}
