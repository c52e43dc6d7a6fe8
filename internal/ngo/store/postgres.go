package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"givebridge/internal/ngo/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const ngoColumns = `id, name, registration_number, contact_email, status,
	rejection_reason, verified_at, created_at, updated_at`

// Create inserts a pending profile. Both the primary key and the
// registration number index are unique; either collision leaves the insert
// a no-op.
func (s *PostgresStore) Create(ctx context.Context, n *models.NGO) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO ngos (`+ngoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
	`,
		uuid.UUID(n.ID), n.Name, n.RegistrationNumber, n.ContactEmail, string(n.Status),
		nullString(n.RejectionReason), nullTime(n.VerifiedAt), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ngo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, ngoID id.UserID) (*models.NGO, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+ngoColumns+` FROM ngos WHERE id = $1`, uuid.UUID(ngoID))
	n, err := scanNGO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ngo: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Update(ctx context.Context, n *models.NGO) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE ngos SET status = $2, rejection_reason = $3, verified_at = $4, updated_at = $5
		WHERE id = $1
	`, uuid.UUID(n.ID), string(n.Status), nullString(n.RejectionReason), nullTime(n.VerifiedAt), n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update ngo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.NGO, error) {
	query := `SELECT ` + ngoColumns + ` FROM ngos`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ngos: %w", err)
	}
	defer rows.Close()

	var out []*models.NGO
	for rows.Next() {
		n, err := scanNGO(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ngo: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ngos: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNGO(s rowScanner) (*models.NGO, error) {
	var (
		rawID      uuid.UUID
		status     string
		reason     sql.NullString
		verifiedAt sql.NullTime
		n          models.NGO
	)
	if err := s.Scan(&rawID, &n.Name, &n.RegistrationNumber, &n.ContactEmail, &status,
		&reason, &verifiedAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.ID = id.UserID(rawID)
	n.Status = models.Status(status)
	if reason.Valid {
		r := reason.String
		n.RejectionReason = &r
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time.UTC()
		n.VerifiedAt = &t
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
