package service

import (
	"context"
	"errors"
	"log/slog"

	"givebridge/internal/ngo/metrics"
	"givebridge/internal/ngo/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, n *models.NGO) error
	FindByID(ctx context.Context, ngoID id.UserID) (*models.NGO, error)
	Update(ctx context.Context, n *models.NGO) error
	ListByStatus(ctx context.Context, status models.Status) ([]*models.NGO, error)
}

// Cache holds verification verdicts keyed by NGO id. found is false on a miss.
type Cache interface {
	Get(ctx context.Context, ngoID id.UserID) (verified, found bool, err error)
	Set(ctx context.Context, ngoID id.UserID, verified bool) error
	Invalidate(ctx context.Context, ngoID id.UserID) error
}

// Service manages NGO profiles and their admin verification.
type Service struct {
	store   Store
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithCache enables cached verification lookups.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ngo store is required")
	}
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func translateStoreErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "ngo not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "ngo profile or registration number already registered")
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
}
