package models

import (
	"strings"
	"time"

	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

// Actor names a party allowed to trigger a transition.
type Actor int

const (
	// ActorOwner is the donor who created the donation.
	ActorOwner Actor = iota
	// ActorAssignedNGO is the NGO recorded in AcceptedBy.
	ActorAssignedNGO
	// ActorAnyNGO is any principal with the ngo role.
	ActorAnyNGO
)

// TransitionRule defines one legal lifecycle edge and who may take it.
type TransitionRule struct {
	From   Status
	To     Status
	Actors []Actor
}

// Transitions is the lifecycle table. Completed and cancelled have no outgoing edges.
var Transitions = []TransitionRule{
	{From: StatusAvailable, To: StatusAccepted, Actors: []Actor{ActorAnyNGO}},
	{From: StatusAccepted, To: StatusCollected, Actors: []Actor{ActorOwner, ActorAssignedNGO}},
	{From: StatusCollected, To: StatusCompleted, Actors: []Actor{ActorOwner, ActorAssignedNGO}},
	{From: StatusAvailable, To: StatusCancelled, Actors: []Actor{ActorOwner}},
	{From: StatusAccepted, To: StatusCancelled, Actors: []Actor{ActorOwner, ActorAssignedNGO}},
	{From: StatusCollected, To: StatusCancelled, Actors: []Actor{ActorOwner}},
}

// FindTransition returns the rule for from->to, or false when the edge does not exist.
func FindTransition(from, to Status) (TransitionRule, bool) {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return TransitionRule{}, false
}

// reachable describes where a donation in from may go next, for error text.
func reachable(from Status) string {
	next := allowedTransitions(from)
	if len(next) == 0 {
		return "; " + string(from) + " is final"
	}
	names := make([]string, len(next))
	for i, st := range next {
		names[i] = string(st)
	}
	return "; allowed: " + strings.Join(names, ", ")
}

// allowedTransitions returns every status reachable from from.
func allowedTransitions(from Status) []Status {
	var allowed []Status
	for _, t := range Transitions {
		if t.From == from {
			allowed = append(allowed, t.To)
		}
	}
	return allowed
}

// permits reports whether p satisfies one of the rule's actors for d.
func (r TransitionRule) permits(d *Donation, p id.Principal) bool {
	for _, a := range r.Actors {
		switch a {
		case ActorOwner:
			if p.IsDonor() && d.IsOwnedBy(p.ID) {
				return true
			}
		case ActorAssignedNGO:
			if p.IsNGO() && d.IsAssignedTo(p.ID) {
				return true
			}
		case ActorAnyNGO:
			if p.IsNGO() && d.AcceptedBy == nil {
				return true
			}
		}
	}
	return false
}

// CanTransition checks the edge exists and that p may take it. The edge is
// checked before the actor so an impossible request reports invalid_transition.
func (d *Donation) CanTransition(p id.Principal, to Status) error {
	if !to.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", to)
	}
	rule, ok := FindTransition(d.Status, to)
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot move donation from %s to %s%s", d.Status, to, reachable(d.Status))
	}
	if !rule.permits(d, p) {
		return dErrors.Newf(dErrors.CodeForbidden, "%s may not move donation from %s to %s", p.Role, d.Status, to)
	}
	return nil
}

// ApplyTransition moves the donation to to and stamps side effects.
// Must only be called after CanTransition returns nil.
func (d *Donation) ApplyTransition(p id.Principal, to Status, reason string, now time.Time) {
	d.Status = to

	switch to {
	case StatusAccepted:
		actor := p.ID
		d.AcceptedBy = &actor
		stampOnce(&d.AcceptedAt, now)
	case StatusCollected:
		stampOnce(&d.CollectedAt, now)
	case StatusCompleted:
		stampOnce(&d.CompletedAt, now)
	case StatusCancelled:
		stampOnce(&d.CancelledAt, now)
		d.AcceptedBy = nil
		r := reason
		d.CancellationReason = &r
	}

	d.UpdatedAt = now
	d.Version++
}

// stampOnce sets *field to now only the first time.
func stampOnce(field **time.Time, now time.Time) {
	if *field != nil {
		return
	}
	t := now
	*field = &t
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (d *Donation) Clone() *Donation {
	c := *d
	if d.Images != nil {
		c.Images = append(make([]string, 0, len(d.Images)), d.Images...)
	}
	c.AcceptedBy = cloneUserID(d.AcceptedBy)
	c.AcceptedAt = cloneTime(d.AcceptedAt)
	c.CollectedAt = cloneTime(d.CollectedAt)
	c.CompletedAt = cloneTime(d.CompletedAt)
	c.CancelledAt = cloneTime(d.CancelledAt)
	if d.CancellationReason != nil {
		r := *d.CancellationReason
		c.CancellationReason = &r
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUserID(u *id.UserID) *id.UserID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
