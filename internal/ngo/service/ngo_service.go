package service

import (
	"context"
	"errors"
	"strings"

	"givebridge/internal/ngo/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/requestcontext"
)

type RegisterParams struct {
	Name               string
	RegistrationNumber string
	ContactEmail       string
}

// RegisterProfile creates the pending profile of the calling NGO. Each NGO
// principal owns exactly one profile.
func (s *Service) RegisterProfile(ctx context.Context, p id.Principal, params RegisterParams) (*models.NGO, error) {
	if !p.IsNGO() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only ngo accounts can register a profile")
	}
	n, err := models.NewNGO(p.ID, params.Name, params.RegistrationNumber, params.ContactEmail, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, translateStoreErr(err, "register ngo")
	}
	s.metrics.IncrementRegistered()
	s.logAudit(ctx, "ngo_registered",
		"ngo_id", n.ID.String(),
		"registration_number", n.RegistrationNumber,
	)
	return n, nil
}

func (s *Service) Verify(ctx context.Context, p id.Principal, ngoID id.UserID) (*models.NGO, error) {
	return s.decide(ctx, p, ngoID, "verified", func(n *models.NGO) error {
		return n.Verify(requestcontext.Now(ctx))
	})
}

func (s *Service) Reject(ctx context.Context, p id.Principal, ngoID id.UserID, reason string) (*models.NGO, error) {
	return s.decide(ctx, p, ngoID, "rejected", func(n *models.NGO) error {
		return n.Reject(reason, requestcontext.Now(ctx))
	})
}

// decide loads the profile, applies an admin verification decision and
// drops any cached verdict.
func (s *Service) decide(ctx context.Context, p id.Principal, ngoID id.UserID, outcome string, apply func(*models.NGO) error) (*models.NGO, error) {
	if !p.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can decide ngo verification")
	}
	n, err := s.store.FindByID(ctx, ngoID)
	if err != nil {
		return nil, translateStoreErr(err, "load ngo")
	}
	if err := apply(n); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, n); err != nil {
		return nil, translateStoreErr(err, "update ngo")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ngoID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate verification cache",
				"ngo_id", ngoID.String(), "error", err)
		}
	}

	s.metrics.IncrementDecision(outcome)
	attributes := []any{"ngo_id", ngoID.String(), "actor_id", p.ID.String(), "outcome", outcome}
	if n.RejectionReason != nil {
		attributes = append(attributes, "reason", *n.RejectionReason)
	}
	s.logAudit(ctx, "ngo_verification_decided", attributes...)
	return n, nil
}

func (s *Service) Get(ctx context.Context, ngoID id.UserID) (*models.NGO, error) {
	n, err := s.store.FindByID(ctx, ngoID)
	if err != nil {
		return nil, translateStoreErr(err, "load ngo")
	}
	return n, nil
}

// ListByStatus lists profiles for the admin review queue. An empty status
// lists every profile.
func (s *Service) ListByStatus(ctx context.Context, p id.Principal, status string) ([]*models.NGO, error) {
	if !p.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can list ngo profiles")
	}
	var st models.Status
	if strings.TrimSpace(status) != "" {
		parsed, err := models.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	out, err := s.store.ListByStatus(ctx, st)
	if err != nil {
		return nil, translateStoreErr(err, "list ngos")
	}
	return out, nil
}

// IsVerified reports whether ngoID has a verified profile. A missing
// profile is not verified. Cache failures fall back to the store.
func (s *Service) IsVerified(ctx context.Context, ngoID id.UserID) (bool, error) {
	if s.cache != nil {
		verified, found, err := s.cache.Get(ctx, ngoID)
		switch {
		case err != nil:
			s.metrics.IncrementCacheResult("error")
			s.logger.WarnContext(ctx, "verification cache lookup failed", "ngo_id", ngoID.String(), "error", err)
		case found:
			s.metrics.IncrementCacheResult("hit")
			return verified, nil
		default:
			s.metrics.IncrementCacheResult("miss")
		}
	}

	n, err := s.store.FindByID(ctx, ngoID)
	verified := false
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case err != nil:
		return false, translateStoreErr(err, "load ngo")
	default:
		verified = n.IsVerified()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ngoID, verified); err != nil {
			s.logger.WarnContext(ctx, "failed to cache verification", "ngo_id", ngoID.String(), "error", err)
		}
	}
	return verified, nil
}
