package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	pstrings "givebridge/pkg/platform/strings"
	txcontext "givebridge/pkg/platform/tx"
)

// PostgresStore persists donations in PostgreSQL. Writes are guarded by the
// version column so concurrent transitions on the same donation conflict
// instead of overwriting each other.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const donationColumns = `id, donor_id, category, title, description, address, lat, lng,
	pickup_option, urgency, images, quantity, food_expiry, amount_cents, status,
	accepted_by, accepted_at, collected_at, completed_at, cancelled_at,
	cancellation_reason, created_at, updated_at, version`

// distanceSQL is the haversine distance in km from the (lat, lng)
// placeholders to each row.
func distanceSQL(lat, lng string) string {
	return `(2 * 6371 * asin(least(1, sqrt(
		power(sin(radians(lat - ` + lat + `) / 2), 2) +
		cos(radians(` + lat + `)) * cos(radians(lat)) * power(sin(radians(lng - ` + lng + `) / 2), 2)))))`
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Donation) error {
	row := toRow(d)
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO donations (`+donationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO NOTHING
	`, row.args()...)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`, uuid.UUID(donationID))
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return d, nil
}

// Update writes every mutable column when the stored version equals
// expectedVersion.
func (s *PostgresStore) Update(ctx context.Context, d *models.Donation, expectedVersion int) error {
	r := toRow(d)
	exec := txcontext.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE donations SET
			title = $2, description = $3, address = $4, lat = $5, lng = $6,
			pickup_option = $7, urgency = $8, images = $9, quantity = $10,
			food_expiry = $11, amount_cents = $12, status = $13, accepted_by = $14,
			accepted_at = $15, collected_at = $16, completed_at = $17,
			cancelled_at = $18, cancellation_reason = $19, updated_at = $20,
			version = $21
		WHERE id = $1 AND version = $22
	`,
		r.ID, r.Title, r.Description, r.Address, r.Lat, r.Lng,
		r.PickupOption, r.Urgency, r.images(), r.Quantity,
		r.FoodExpiry, r.AmountCents, r.Status, r.AcceptedBy,
		r.AcceptedAt, r.CollectedAt, r.CompletedAt,
		r.CancelledAt, r.CancellationReason, r.UpdatedAt,
		r.Version, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	return s.versionedResult(ctx, exec, res, d.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, donationID id.DonationID, expectedVersion int) error {
	exec := txcontext.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx,
		`DELETE FROM donations WHERE id = $1 AND version = $2`, uuid.UUID(donationID), expectedVersion)
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	return s.versionedResult(ctx, exec, res, donationID)
}

// versionedResult tells a missing row apart from a stale version after a
// guarded write touched nothing.
func (s *PostgresStore) versionedResult(ctx context.Context, exec txcontext.Executor, res sql.Result, donationID id.DonationID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM donations WHERE id = $1)`, uuid.UUID(donationID)).Scan(&exists); err != nil {
		return fmt.Errorf("check donation: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) ListAvailable(ctx context.Context, filter models.ListFilter) ([]*models.Donation, error) {
	filter = filter.Normalize()

	var args []any
	where := []string{"status = 'available'"}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Categories) > 0 {
		cats := make([]string, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			cats = append(cats, c.String())
		}
		where = append(where, "category = ANY("+next(pq.Array(cats))+")")
	}
	if q := pstrings.NormalizeSearch(filter.Search); q != "" {
		p := next("%" + escapeLike(q) + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if filter.Near != nil {
		lat, lng := next(filter.Near.Origin.Lat), next(filter.Near.Origin.Lng)
		where = append(where, distanceSQL(lat, lng)+" <= "+next(filter.Near.RadiusKm))
	}

	query := `SELECT ` + donationColumns + ` FROM donations WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id LIMIT ` + next(filter.Limit) + ` OFFSET ` + next(filter.Offset)

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available donations: %w", err)
	}
	defer rows.Close()
	return scanDonations(rows)
}

func (s *PostgresStore) ListNearby(ctx context.Context, q models.GeoQuery, limit int) ([]models.NearbyResult, error) {
	// Latitude box first so idx_donations_lat_lng narrows the scan.
	latDelta := q.RadiusKm/110.0 + 0.01
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+donationColumns+`, distance_km FROM (
			SELECT *, `+distanceSQL("$1", "$2")+` AS distance_km
			FROM donations
			WHERE status = 'available' AND lat BETWEEN $3 AND $4
		) d
		WHERE distance_km <= $5
		ORDER BY distance_km, created_at DESC
		LIMIT $6
	`, q.Origin.Lat, q.Origin.Lng, q.Origin.Lat-latDelta, q.Origin.Lat+latDelta, q.RadiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("list nearby donations: %w", err)
	}
	defer rows.Close()

	results := make([]models.NearbyResult, 0)
	for rows.Next() {
		var (
			r    donationRow
			dist float64
		)
		if err := rows.Scan(append(r.dest(), &dist)...); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		results = append(results, models.NearbyResult{Donation: r.toModel(), DistanceKm: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return results, nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.UserID) ([]*models.Donation, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE donor_id = $1
		ORDER BY created_at DESC, id
	`, uuid.UUID(donorID))
	if err != nil {
		return nil, fmt.Errorf("list donor donations: %w", err)
	}
	defer rows.Close()
	return scanDonations(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// donationRow mirrors the donations table.
type donationRow struct {
	ID                 uuid.UUID
	DonorID            uuid.UUID
	Category           string
	Title              string
	Description        string
	Address            string
	Lat                float64
	Lng                float64
	PickupOption       string
	Urgency            string
	Images             pq.StringArray
	Quantity           sql.NullInt64
	FoodExpiry         sql.NullTime
	AmountCents        sql.NullInt64
	Status             string
	AcceptedBy         uuid.NullUUID
	AcceptedAt         sql.NullTime
	CollectedAt        sql.NullTime
	CompletedAt        sql.NullTime
	CancelledAt        sql.NullTime
	CancellationReason sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int
}

func (r *donationRow) dest() []any {
	return []any{
		&r.ID, &r.DonorID, &r.Category, &r.Title, &r.Description, &r.Address, &r.Lat, &r.Lng,
		&r.PickupOption, &r.Urgency, &r.Images, &r.Quantity, &r.FoodExpiry, &r.AmountCents, &r.Status,
		&r.AcceptedBy, &r.AcceptedAt, &r.CollectedAt, &r.CompletedAt, &r.CancelledAt,
		&r.CancellationReason, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	}
}

// images never binds NULL; the column is NOT NULL DEFAULT '{}'.
func (r *donationRow) images() pq.StringArray {
	if r.Images == nil {
		return pq.StringArray{}
	}
	return r.Images
}

func (r *donationRow) args() []any {
	return []any{
		r.ID, r.DonorID, r.Category, r.Title, r.Description, r.Address, r.Lat, r.Lng,
		r.PickupOption, r.Urgency, r.images(), r.Quantity, r.FoodExpiry, r.AmountCents, r.Status,
		r.AcceptedBy, r.AcceptedAt, r.CollectedAt, r.CompletedAt, r.CancelledAt,
		r.CancellationReason, r.CreatedAt, r.UpdatedAt, r.Version,
	}
}

func toRow(d *models.Donation) *donationRow {
	r := &donationRow{
		ID:           uuid.UUID(d.ID),
		DonorID:      uuid.UUID(d.DonorID),
		Category:     d.Category.String(),
		Title:        d.Title,
		Description:  d.Description,
		Address:      d.Location.Address,
		Lat:          d.Location.Lat,
		Lng:          d.Location.Lng,
		PickupOption: d.PickupOption.String(),
		Urgency:      d.Urgency.String(),
		Images:       pq.StringArray(d.Images),
		Status:       d.Status.String(),
		AcceptedAt:   nullTime(d.AcceptedAt),
		CollectedAt:  nullTime(d.CollectedAt),
		CompletedAt:  nullTime(d.CompletedAt),
		CancelledAt:  nullTime(d.CancelledAt),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Version:      d.Version,
	}
	if d.AcceptedBy != nil {
		r.AcceptedBy = uuid.NullUUID{UUID: uuid.UUID(*d.AcceptedBy), Valid: true}
	}
	if d.CancellationReason != nil {
		r.CancellationReason = sql.NullString{String: *d.CancellationReason, Valid: true}
	}
	switch det := d.Details.(type) {
	case models.FoodDetails:
		r.Quantity = sql.NullInt64{Int64: int64(det.Quantity), Valid: true}
		r.FoodExpiry = sql.NullTime{Time: det.Expiry, Valid: true}
	case models.FinancialDetails:
		r.AmountCents = sql.NullInt64{Int64: det.AmountCents, Valid: true}
	case models.ItemDetails:
		r.Quantity = sql.NullInt64{Int64: int64(det.Quantity), Valid: true}
	}
	return r
}

func (r *donationRow) toModel() *models.Donation {
	d := &models.Donation{
		ID:           id.DonationID(r.ID),
		DonorID:      id.UserID(r.DonorID),
		Category:     models.Category(r.Category),
		Title:        r.Title,
		Description:  r.Description,
		Location:     models.Location{Address: r.Address, Lat: r.Lat, Lng: r.Lng},
		PickupOption: models.PickupOption(r.PickupOption),
		Urgency:      models.Urgency(r.Urgency),
		Status:       models.Status(r.Status),
		AcceptedAt:   timePtr(r.AcceptedAt),
		CollectedAt:  timePtr(r.CollectedAt),
		CompletedAt:  timePtr(r.CompletedAt),
		CancelledAt:  timePtr(r.CancelledAt),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		Version:      r.Version,
	}
	if len(r.Images) > 0 {
		d.Images = []string(r.Images)
	}
	if r.AcceptedBy.Valid {
		u := id.UserID(r.AcceptedBy.UUID)
		d.AcceptedBy = &u
	}
	if r.CancellationReason.Valid {
		reason := r.CancellationReason.String
		d.CancellationReason = &reason
	}
	switch {
	case d.Category == models.CategoryFood:
		d.Details = models.FoodDetails{Expiry: r.FoodExpiry.Time.UTC(), Quantity: int(r.Quantity.Int64)}
	case d.Category == models.CategoryFinancial:
		d.Details = models.FinancialDetails{AmountCents: r.AmountCents.Int64}
	default:
		d.Details = models.ItemDetails{Quantity: int(r.Quantity.Int64)}
	}
	return d
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(s rowScanner) (*models.Donation, error) {
	var r donationRow
	if err := s.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.toModel(), nil
}

func scanDonations(rows *sql.Rows) ([]*models.Donation, error) {
	out := make([]*models.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
