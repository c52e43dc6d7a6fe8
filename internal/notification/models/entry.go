package models

import "time"

// EntryStatus tracks an outbox row through delivery.
type EntryStatus string

const (
	EntryPending    EntryStatus = "pending"
	EntryProcessing EntryStatus = "processing"
	EntryExhausted  EntryStatus = "exhausted"
)

// Entry is an event waiting in the outbox together with its retry state.
//
// Invariants:
//   - Attempts counts failed deliveries and never decreases
//   - an exhausted entry is never claimed again
//   - a processing entry is reclaimable once LockedUntil has passed
type Entry struct {
	Event         Event
	Status        EntryStatus
	Attempts      int
	NextAttemptAt time.Time
	LockedUntil   *time.Time
	LastError     string
	CreatedAt     time.Time
}

// Claimable reports whether the dispatcher may pick the entry up at now.
func (e *Entry) Claimable(now time.Time) bool {
	switch e.Status {
	case EntryPending:
		return !e.NextAttemptAt.After(now)
	case EntryProcessing:
		return e.LockedUntil != nil && !e.LockedUntil.After(now)
	}
	return false
}

// RetryPlan is the outcome of a failed delivery.
type RetryPlan struct {
	Attempts      int
	NextAttemptAt time.Time
	Exhausted     bool
	LastError     string
}

// PlanRetry schedules the next attempt with a linear backoff of
// retryDelay * attempts, or parks the entry once maxAttempts is reached.
func (e *Entry) PlanRetry(cause error, now time.Time, retryDelay time.Duration, maxAttempts int) RetryPlan {
	attempts := e.Attempts + 1
	plan := RetryPlan{
		Attempts:      attempts,
		NextAttemptAt: now.Add(retryDelay * time.Duration(attempts)),
		Exhausted:     attempts >= maxAttempts,
	}
	if cause != nil {
		plan.LastError = cause.Error()
	}
	return plan
}
