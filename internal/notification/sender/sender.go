// Package sender delivers notification events to their channels.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"givebridge/internal/notification/models"
)

// Sender delivers one event. A nil error means the event may be discarded.
type Sender interface {
	Send(ctx context.Context, event models.Event) error
}

// LogSender writes events to the structured log. Used in development and as
// the default channel when nothing else is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, event models.Event) error {
	s.logger.InfoContext(ctx, "notification",
		"event", event.Type.String(),
		"notification_id", event.ID.String(),
		"recipient_id", event.RecipientID.String(),
		"recipient_role", event.RecipientRole.String(),
		"donation_id", event.DonationID.String(),
		"request_id", event.RequestID,
	)
	return nil
}

// MultiSender fans an event out to every sender and fails when any of them fails.
type MultiSender struct {
	senders []Sender
}

func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

func (m *MultiSender) Send(ctx context.Context, event models.Event) error {
	var errs []error
	for i, s := range m.senders {
		if err := s.Send(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("sender %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
