package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"givebridge/internal/donation/models"
	notification "givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/requestcontext"
)

// CreateDonation validates params and stores a new available donation owned
// by the donor principal.
func (s *Service) CreateDonation(ctx context.Context, p id.Principal, params models.NewDonationParams) (_ *models.Donation, err error) {
	ctx, span := s.tracer.Start(ctx, "donation.create",
		trace.WithAttributes(attribute.String("donation.category", params.Category)))
	defer func() { endSpan(span, err) }()

	if !p.IsDonor() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only donors can create donations")
	}

	d, err := models.NewDonation(id.NewDonationID(), p.ID, params, requestcontext.Now(ctx), s.foodMinLead)
	if err != nil {
		return nil, err
	}
	if err := d.CheckInvariants(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, translateStoreErr(err, "create donation")
	}

	span.SetAttributes(attribute.String("donation.id", d.ID.String()))
	s.metrics.IncrementCreated(d.Category.String())
	s.logAudit(ctx, "donation_created",
		"donation_id", d.ID.String(),
		"actor_id", p.ID.String(),
		"category", d.Category.String(),
	)
	return d, nil
}

// RequestStatusChange moves a donation along the lifecycle on behalf of p.
// The record is persisted before any notification is queued; a queueing
// failure is logged and does not fail the call.
func (s *Service) RequestStatusChange(ctx context.Context, donationID id.DonationID, p id.Principal, target string, reason string) (_ *models.Donation, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "donation.request_status_change", trace.WithAttributes(
		attribute.String("donation.id", donationID.String()),
		attribute.String("donation.target_status", target),
		attribute.String("actor.role", p.Role.String()),
	))
	defer func() {
		if err != nil {
			s.metrics.IncrementRejection(string(dErrors.CodeOf(err)))
		}
		s.metrics.ObserveRequestStatusChange(start)
		endSpan(span, err)
	}()

	to, err := models.ParseStatus(target)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if to != models.StatusCancelled {
		reason = ""
	}
	if utf8.RuneCountInString(reason) > MaxCancellationReason {
		return nil, dErrors.Validation("invalid status change", []dErrors.FieldError{
			{Field: "reason", Message: "reason must be 500 characters or less"},
		})
	}

	d, err := s.store.FindByID(ctx, donationID)
	if err != nil {
		return nil, translateStoreErr(err, "load donation")
	}
	if err := d.CanTransition(p, to); err != nil {
		return nil, err
	}
	if to == models.StatusAccepted {
		if err := s.requireVerified(ctx, p); err != nil {
			return nil, err
		}
	}

	from := d.Status
	expected := d.Version
	assigned := d.AcceptedBy
	now := requestcontext.Now(ctx)
	d.ApplyTransition(p, to, reason, now)
	if err := d.CheckInvariants(); err != nil {
		s.logger.ErrorContext(ctx, "transition produced inconsistent donation",
			"donation_id", d.ID.String(), "from", from.String(), "to", to.String(), "error", err)
		return nil, err
	}
	if assigned == nil {
		assigned = d.AcceptedBy
	}

	if err := s.store.Update(ctx, d, expected); err != nil {
		return nil, translateStoreErr(err, "update donation")
	}

	s.metrics.IncrementTransition(from.String(), to.String())
	s.logAudit(ctx, "donation_status_changed",
		"donation_id", d.ID.String(),
		"from", from.String(),
		"to", to.String(),
		"actor_id", p.ID.String(),
		"actor_role", p.Role.String(),
	)

	s.notify(ctx, notification.LifecycleChange{
		DonationID:    d.ID,
		DonationTitle: d.Title,
		DonorID:       d.DonorID,
		AssignedNGO:   assigned,
		Actor:         p,
		From:          from.String(),
		To:            to.String(),
		Reason:        reason,
		RequestID:     requestcontext.RequestID(ctx),
		OccurredAt:    now,
	})
	return d, nil
}

func (s *Service) requireVerified(ctx context.Context, p id.Principal) error {
	if s.verifier == nil {
		return nil
	}
	ok, err := s.verifier.IsVerified(ctx, p.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check ngo verification")
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "ngo must be verified before accepting donations")
	}
	return nil
}

func (s *Service) notify(ctx context.Context, change notification.LifecycleChange) {
	n, err := s.notifier.Notify(ctx, change)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to queue lifecycle notification",
			"donation_id", change.DonationID.String(),
			"to", change.To,
			"request_id", change.RequestID,
			"error", err,
		)
		return
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "lifecycle notification queued",
			"donation_id", change.DonationID.String(),
			"to", change.To,
			"events", n,
		)
	}
}

// GetByID returns a donation p may see: available donations are public to
// any principal, others only to the owner, the assigned NGO or an admin.
func (s *Service) GetByID(ctx context.Context, donationID id.DonationID, p id.Principal) (_ *models.Donation, err error) {
	ctx, span := s.tracer.Start(ctx, "donation.get",
		trace.WithAttributes(attribute.String("donation.id", donationID.String())))
	defer func() { endSpan(span, err) }()

	d, err := s.store.FindByID(ctx, donationID)
	if err != nil {
		return nil, translateStoreErr(err, "load donation")
	}
	if !d.CanView(p) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to view this donation")
	}
	return d, nil
}

// ListAvailable returns available donations matching filter, newest first.
func (s *Service) ListAvailable(ctx context.Context, filter models.ListFilter) (_ []*models.Donation, err error) {
	ctx, span := s.tracer.Start(ctx, "donation.list_available")
	defer func() { endSpan(span, err) }()

	if filter.Near != nil {
		if err := validateGeoQuery(*filter.Near); err != nil {
			return nil, err
		}
	}
	ds, err := s.store.ListAvailable(ctx, filter.Normalize())
	if err != nil {
		return nil, translateStoreErr(err, "list donations")
	}
	span.SetAttributes(attribute.Int("donation.count", len(ds)))
	return ds, nil
}

// ListNearby returns available donations within q, nearest first.
func (s *Service) ListNearby(ctx context.Context, q models.GeoQuery) (_ []models.NearbyResult, err error) {
	ctx, span := s.tracer.Start(ctx, "donation.list_nearby", trace.WithAttributes(
		attribute.Float64("geo.radius_km", q.RadiusKm),
	))
	defer func() { endSpan(span, err) }()

	if err := validateGeoQuery(q); err != nil {
		return nil, err
	}
	results, err := s.store.ListNearby(ctx, q, s.nearbyLimit)
	if err != nil {
		return nil, translateStoreErr(err, "list nearby donations")
	}
	span.SetAttributes(attribute.Int("donation.count", len(results)))
	return results, nil
}

// ListByDonor returns every donation of donorID. Donors may only list their
// own; admins may list anyone's.
func (s *Service) ListByDonor(ctx context.Context, donorID id.UserID, p id.Principal) (_ []*models.Donation, err error) {
	ctx, span := s.tracer.Start(ctx, "donation.list_by_donor")
	defer func() { endSpan(span, err) }()

	if !p.IsAdmin() && !(p.IsDonor() && p.ID == donorID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to list these donations")
	}
	ds, err := s.store.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, translateStoreErr(err, "list donor donations")
	}
	return ds, nil
}

// Delete hard-deletes a non-terminal donation. Only the owner donor or an
// admin may delete.
func (s *Service) Delete(ctx context.Context, donationID id.DonationID, p id.Principal) (err error) {
	ctx, span := s.tracer.Start(ctx, "donation.delete",
		trace.WithAttributes(attribute.String("donation.id", donationID.String())))
	defer func() { endSpan(span, err) }()

	d, err := s.store.FindByID(ctx, donationID)
	if err != nil {
		return translateStoreErr(err, "load donation")
	}
	if err := d.CanDelete(p); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, d.ID, d.Version); err != nil {
		return translateStoreErr(err, "delete donation")
	}
	s.logAudit(ctx, "donation_deleted",
		"donation_id", d.ID.String(),
		"status", d.Status.String(),
		"actor_id", p.ID.String(),
		"actor_role", p.Role.String(),
	)
	return nil
}

func validateGeoQuery(q models.GeoQuery) error {
	var details []dErrors.FieldError
	if !q.Origin.Valid() {
		details = append(details, dErrors.FieldError{Field: "origin", Message: "lat must be within [-90,90] and lng within [-180,180]"})
	}
	if q.RadiusKm <= 0 || q.RadiusKm > models.MaxSearchRadiusKm {
		details = append(details, dErrors.FieldError{Field: "radiusKm", Message: "radiusKm must be greater than 0 and at most 500"})
	}
	if len(details) > 0 {
		return dErrors.Validation("invalid geo query", details)
	}
	return nil
}
