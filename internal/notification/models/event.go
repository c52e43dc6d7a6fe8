package models

import (
	"time"

	id "givebridge/pkg/domain"
)

// EventType names a lifecycle notification.
type EventType string

const (
	EventDonationAccepted  EventType = "donation.accepted"
	EventDonationCollected EventType = "donation.collected"
	EventDonationCompleted EventType = "donation.completed"
	EventDonationCancelled EventType = "donation.cancelled"
)

func (t EventType) String() string { return string(t) }

// Event is one message addressed to one recipient about one donation.
type Event struct {
	ID            id.NotificationID `json:"id"`
	Type          EventType         `json:"type"`
	RecipientID   id.UserID         `json:"recipient_id"`
	RecipientRole id.Role           `json:"recipient_role"`
	DonationID    id.DonationID     `json:"donation_id"`
	DonationTitle string            `json:"donation_title"`
	ActorID       id.UserID         `json:"actor_id"`
	ActorRole     id.Role           `json:"actor_role"`
	FromStatus    string            `json:"from_status"`
	ToStatus      string            `json:"to_status"`
	Reason        string            `json:"reason,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// LifecycleChange describes a persisted status transition. AssignedNGO is the
// NGO attached to the donation before or, for acceptance, after the change.
type LifecycleChange struct {
	DonationID    id.DonationID
	DonationTitle string
	DonorID       id.UserID
	AssignedNGO   *id.UserID
	Actor         id.Principal
	From          string
	To            string
	Reason        string
	RequestID     string
	OccurredAt    time.Time
}

type recipient struct {
	id   id.UserID
	role id.Role
}

// EventsFor derives the notifications a transition produces:
//   - accepted notifies the donor
//   - collected notifies the party that did not act
//   - completed notifies the donor
//   - cancelled notifies the other party; an unassigned donation cancelled by
//     its donor notifies nobody
func EventsFor(c LifecycleChange) []Event {
	donor := recipient{id: c.DonorID, role: id.RoleDonor}
	var ngo *recipient
	if c.AssignedNGO != nil {
		ngo = &recipient{id: *c.AssignedNGO, role: id.RoleNGO}
	}
	actorIsDonor := c.Actor.IsDonor() && c.Actor.ID == c.DonorID

	var (
		eventType  EventType
		recipients []recipient
	)
	switch c.To {
	case "accepted":
		eventType = EventDonationAccepted
		recipients = []recipient{donor}
	case "collected":
		eventType = EventDonationCollected
		if actorIsDonor {
			if ngo != nil {
				recipients = []recipient{*ngo}
			}
		} else {
			recipients = []recipient{donor}
		}
	case "completed":
		eventType = EventDonationCompleted
		recipients = []recipient{donor}
	case "cancelled":
		eventType = EventDonationCancelled
		if actorIsDonor {
			if ngo != nil {
				recipients = []recipient{*ngo}
			}
		} else {
			recipients = []recipient{donor}
		}
	default:
		return nil
	}

	events := make([]Event, 0, len(recipients))
	for _, r := range recipients {
		events = append(events, Event{
			ID:            id.NewNotificationID(),
			Type:          eventType,
			RecipientID:   r.id,
			RecipientRole: r.role,
			DonationID:    c.DonationID,
			DonationTitle: c.DonationTitle,
			ActorID:       c.Actor.ID,
			ActorRole:     c.Actor.Role,
			FromStatus:    c.From,
			ToStatus:      c.To,
			Reason:        c.Reason,
			RequestID:     c.RequestID,
			OccurredAt:    c.OccurredAt,
		})
	}
	return events
}
