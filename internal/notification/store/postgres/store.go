package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

// Outbox persists notification events in notification_outbox. Enqueue joins
// a transaction carried by ctx; Claim leases rows with FOR UPDATE SKIP LOCKED
// so several dispatchers can share the table.
type Outbox struct {
	db *sql.DB
}

func New(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

func (s *Outbox) Enqueue(ctx context.Context, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		for _, ev := range events {
			payload, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal notification payload: %w", err)
			}
			_, err = exec.ExecContext(ctx, `
				INSERT INTO notification_outbox (
					id, event_type, recipient_id, donation_id, payload,
					status, attempts, next_attempt_at, created_at
				)
				VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, $6)
				ON CONFLICT (id) DO NOTHING
			`,
				uuid.UUID(ev.ID),
				ev.Type.String(),
				uuid.UUID(ev.RecipientID),
				uuid.UUID(ev.DonationID),
				payload,
				time.Now().UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert outbox entry: %w", err)
			}
		}
		return nil
	})
}

func (s *Outbox) Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.Entry, error) {
	var entries []models.Entry
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
			UPDATE notification_outbox o
			SET status = 'processing', locked_until = $3
			FROM (
				SELECT id FROM notification_outbox
				WHERE (status = 'pending' AND next_attempt_at <= $1)
				   OR (status = 'processing' AND locked_until <= $1)
				ORDER BY created_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			) picked
			WHERE o.id = picked.id
			RETURNING o.payload, o.status, o.attempts, o.next_attempt_at,
			          o.locked_until, o.last_error, o.created_at
		`, now, limit, now.Add(lease))
		if err != nil {
			return fmt.Errorf("claim outbox entries: %w", err)
		}
		defer rows.Close()

		entries, err = scanEntries(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Outbox) MarkDelivered(ctx context.Context, eventID id.NotificationID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`DELETE FROM notification_outbox WHERE id = $1`, uuid.UUID(eventID))
	if err != nil {
		return fmt.Errorf("delete outbox entry: %w", err)
	}
	return requireOneRow(res)
}

func (s *Outbox) MarkFailed(ctx context.Context, eventID id.NotificationID, plan models.RetryPlan) error {
	status := models.EntryPending
	if plan.Exhausted {
		status = models.EntryExhausted
	}
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = $2, attempts = $3, next_attempt_at = $4,
		    last_error = $5, locked_until = NULL
		WHERE id = $1
	`, uuid.UUID(eventID), string(status), plan.Attempts, plan.NextAttemptAt, plan.LastError)
	if err != nil {
		return fmt.Errorf("update outbox entry: %w", err)
	}
	return requireOneRow(res)
}

func (s *Outbox) ListByStatus(ctx context.Context, status models.EntryStatus) ([]models.Entry, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT payload, status, attempts, next_attempt_at, locked_until, last_error, created_at
		FROM notification_outbox
		WHERE status = $1
		ORDER BY created_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query outbox entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.Entry, error) {
	entries := make([]models.Entry, 0)
	for rows.Next() {
		var (
			e           models.Entry
			payload     []byte
			status      string
			lockedUntil sql.NullTime
			lastError   sql.NullString
		)
		if err := rows.Scan(&payload, &status, &e.Attempts, &e.NextAttemptAt, &lockedUntil, &lastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Event); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		e.Status = models.EntryStatus(status)
		if lockedUntil.Valid {
			t := lockedUntil.Time
			e.LockedUntil = &t
		}
		e.LastError = lastError.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
