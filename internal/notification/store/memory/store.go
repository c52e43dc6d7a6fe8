package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

// InMemoryOutbox keeps outbox entries in a map ordered by enqueue time.
type InMemoryOutbox struct {
	mu      sync.Mutex
	entries map[id.NotificationID]*models.Entry
	seq     map[id.NotificationID]uint64
	next    uint64
	now     func() time.Time
}

func NewInMemoryOutbox() *InMemoryOutbox {
	return &InMemoryOutbox{
		entries: make(map[id.NotificationID]*models.Entry),
		seq:     make(map[id.NotificationID]uint64),
		now:     time.Now,
	}
}

func (s *InMemoryOutbox) Enqueue(_ context.Context, events ...models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, ev := range events {
		if _, exists := s.entries[ev.ID]; exists {
			continue
		}
		s.entries[ev.ID] = &models.Entry{
			Event:         ev,
			Status:        models.EntryPending,
			NextAttemptAt: now,
			CreatedAt:     now,
		}
		s.seq[ev.ID] = s.next
		s.next++
	}
	return nil
}

// Claim leases up to limit claimable entries in enqueue order.
func (s *InMemoryOutbox) Claim(_ context.Context, now time.Time, limit int, lease time.Duration) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]id.NotificationID, 0, len(s.entries))
	for eid, e := range s.entries {
		if e.Claimable(now) {
			ids = append(ids, eid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] < s.seq[ids[j]] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	until := now.Add(lease)
	claimed := make([]models.Entry, 0, len(ids))
	for _, eid := range ids {
		e := s.entries[eid]
		e.Status = models.EntryProcessing
		lockedUntil := until
		e.LockedUntil = &lockedUntil
		claimed = append(claimed, *e)
	}
	return claimed, nil
}

// MarkDelivered removes a delivered entry.
func (s *InMemoryOutbox) MarkDelivered(_ context.Context, eventID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[eventID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, eventID)
	delete(s.seq, eventID)
	return nil
}

// MarkFailed records a failed attempt and reschedules or parks the entry.
func (s *InMemoryOutbox) MarkFailed(_ context.Context, eventID id.NotificationID, plan models.RetryPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Attempts = plan.Attempts
	e.NextAttemptAt = plan.NextAttemptAt
	e.LastError = plan.LastError
	e.LockedUntil = nil
	e.Status = models.EntryPending
	if plan.Exhausted {
		e.Status = models.EntryExhausted
	}
	return nil
}

// ListByStatus returns entries in the given state, oldest first.
func (s *InMemoryOutbox) ListByStatus(_ context.Context, status models.EntryStatus) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Entry, 0)
	for _, e := range s.entries {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].Event.ID] < s.seq[out[j].Event.ID] })
	return out, nil
}
