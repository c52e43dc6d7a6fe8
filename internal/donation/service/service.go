package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"givebridge/internal/donation/metrics"
	"givebridge/internal/donation/models"
	notification "givebridge/internal/notification/models"
	"givebridge/pkg/attrs"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/requestcontext"
)

// Store is the persistence collaborator. Update and Delete succeed only when
// the stored version equals expectedVersion.
type Store interface {
	Create(ctx context.Context, d *models.Donation) error
	FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	Update(ctx context.Context, d *models.Donation, expectedVersion int) error
	Delete(ctx context.Context, donationID id.DonationID, expectedVersion int) error
	ListAvailable(ctx context.Context, filter models.ListFilter) ([]*models.Donation, error)
	ListNearby(ctx context.Context, q models.GeoQuery, limit int) ([]models.NearbyResult, error)
	ListByDonor(ctx context.Context, donorID id.UserID) ([]*models.Donation, error)
}

// Notifier queues lifecycle notifications for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, change notification.LifecycleChange) (int, error)
}

// VerificationChecker reports whether an NGO has passed admin verification.
type VerificationChecker interface {
	IsVerified(ctx context.Context, ngoID id.UserID) (bool, error)
}

const (
	DefaultNearbyLimit    = 50
	MaxCancellationReason = 500
)

// Service is the donation lifecycle engine. It holds no state between calls;
// every operation loads, validates and persists through the Store.
type Service struct {
	store       Store
	notifier    Notifier
	verifier    VerificationChecker
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	foodMinLead time.Duration
	nearbyLimit int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithVerificationGate makes the accept edge refuse NGOs that checker does
// not report as verified.
func WithVerificationGate(checker VerificationChecker) Option {
	return func(s *Service) {
		s.verifier = checker
	}
}

func WithFoodMinLead(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.foodMinLead = d
		}
	}
}

func WithNearbyLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.nearbyLimit = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(store Store, notifier Notifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("donation store is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		store:       store,
		notifier:    notifier,
		logger:      slog.Default(),
		tracer:      otel.Tracer("givebridge/donation"),
		foodMinLead: models.DefaultFoodMinLead,
		nearbyLimit: DefaultNearbyLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// translateStoreErr maps store sentinels onto domain codes.
func translateStoreErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donation not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "donation was modified concurrently, reload and retry")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "donation already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)

	trace.SpanFromContext(ctx).AddEvent(event, trace.WithAttributes(
		attrs.SpanAttributes(attributes, "donation_id", "actor_id", "from", "to")...,
	))
}

// endSpan records err on span before ending it. Expected domain outcomes
// are tagged with their code but do not mark the span as failed.
func endSpan(span trace.Span, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		span.SetAttributes(attribute.String("error.code", string(code)))
		if code == dErrors.CodeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
