package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	pstrings "givebridge/pkg/platform/strings"
)

const DonationsCollection = "donations"

// MongoStore persists donations as documents with a GeoJSON point so radius
// queries can use a 2dsphere index.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(DonationsCollection)}
}

// EnsureIndexes creates the geo, listing, owner and expiry indexes. Safe to
// call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "geo", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "food_expiry", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "donor_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "accepted_by", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create donation indexes: %w", err)
	}
	return nil
}

type geoJSONPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type donationDoc struct {
	ID                 string       `bson:"_id"`
	DonorID            string       `bson:"donor_id"`
	Category           string       `bson:"category"`
	Title              string       `bson:"title"`
	Description        string       `bson:"description"`
	Address            string       `bson:"address"`
	Geo                geoJSONPoint `bson:"geo"`
	PickupOption       string       `bson:"pickup_option"`
	Urgency            string       `bson:"urgency"`
	Images             []string     `bson:"images,omitempty"`
	Quantity           *int         `bson:"quantity,omitempty"`
	FoodExpiry         *time.Time   `bson:"food_expiry,omitempty"`
	AmountCents        *int64       `bson:"amount_cents,omitempty"`
	Status             string       `bson:"status"`
	AcceptedBy         *string      `bson:"accepted_by,omitempty"`
	AcceptedAt         *time.Time   `bson:"accepted_at,omitempty"`
	CollectedAt        *time.Time   `bson:"collected_at,omitempty"`
	CompletedAt        *time.Time   `bson:"completed_at,omitempty"`
	CancelledAt        *time.Time   `bson:"cancelled_at,omitempty"`
	CancellationReason *string      `bson:"cancellation_reason,omitempty"`
	CreatedAt          time.Time    `bson:"created_at"`
	UpdatedAt          time.Time    `bson:"updated_at"`
	Version            int          `bson:"version"`
}

func toDoc(d *models.Donation) donationDoc {
	doc := donationDoc{
		ID:          d.ID.String(),
		DonorID:     d.DonorID.String(),
		Category:    d.Category.String(),
		Title:       d.Title,
		Description: d.Description,
		Address:     d.Location.Address,
		Geo: geoJSONPoint{
			Type:        "Point",
			Coordinates: []float64{d.Location.Lng, d.Location.Lat},
		},
		PickupOption:       d.PickupOption.String(),
		Urgency:            d.Urgency.String(),
		Images:             d.Images,
		Status:             d.Status.String(),
		AcceptedAt:         d.AcceptedAt,
		CollectedAt:        d.CollectedAt,
		CompletedAt:        d.CompletedAt,
		CancelledAt:        d.CancelledAt,
		CancellationReason: d.CancellationReason,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Version:            d.Version,
	}
	if d.AcceptedBy != nil {
		v := d.AcceptedBy.String()
		doc.AcceptedBy = &v
	}
	switch det := d.Details.(type) {
	case models.FoodDetails:
		q, exp := det.Quantity, det.Expiry
		doc.Quantity, doc.FoodExpiry = &q, &exp
	case models.FinancialDetails:
		a := det.AmountCents
		doc.AmountCents = &a
	case models.ItemDetails:
		q := det.Quantity
		doc.Quantity = &q
	}
	return doc
}

func (doc donationDoc) toModel() (*models.Donation, error) {
	donationID, err := id.ParseDonationID(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("decode donation id: %w", err)
	}
	donorID, err := id.ParseUserID(doc.DonorID)
	if err != nil {
		return nil, fmt.Errorf("decode donor id: %w", err)
	}
	var lat, lng float64
	if len(doc.Geo.Coordinates) == 2 {
		lng, lat = doc.Geo.Coordinates[0], doc.Geo.Coordinates[1]
	}
	d := &models.Donation{
		ID:                 donationID,
		DonorID:            donorID,
		Category:           models.Category(doc.Category),
		Title:              doc.Title,
		Description:        doc.Description,
		Location:           models.Location{Address: doc.Address, Lat: lat, Lng: lng},
		PickupOption:       models.PickupOption(doc.PickupOption),
		Urgency:            models.Urgency(doc.Urgency),
		Images:             doc.Images,
		Status:             models.Status(doc.Status),
		AcceptedAt:         utcPtr(doc.AcceptedAt),
		CollectedAt:        utcPtr(doc.CollectedAt),
		CompletedAt:        utcPtr(doc.CompletedAt),
		CancelledAt:        utcPtr(doc.CancelledAt),
		CancellationReason: doc.CancellationReason,
		CreatedAt:          doc.CreatedAt.UTC(),
		UpdatedAt:          doc.UpdatedAt.UTC(),
		Version:            doc.Version,
	}
	if doc.AcceptedBy != nil {
		ngo, err := id.ParseUserID(*doc.AcceptedBy)
		if err != nil {
			return nil, fmt.Errorf("decode accepted_by: %w", err)
		}
		d.AcceptedBy = &ngo
	}
	quantity := 0
	if doc.Quantity != nil {
		quantity = *doc.Quantity
	}
	switch {
	case d.Category == models.CategoryFood:
		var expiry time.Time
		if doc.FoodExpiry != nil {
			expiry = doc.FoodExpiry.UTC()
		}
		d.Details = models.FoodDetails{Expiry: expiry, Quantity: quantity}
	case d.Category == models.CategoryFinancial:
		var cents int64
		if doc.AmountCents != nil {
			cents = *doc.AmountCents
		}
		d.Details = models.FinancialDetails{AmountCents: cents}
	default:
		d.Details = models.ItemDetails{Quantity: quantity}
	}
	return d, nil
}

func (s *MongoStore) Create(ctx context.Context, d *models.Donation) error {
	if _, err := s.col.InsertOne(ctx, toDoc(d)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	var doc donationDoc
	err := s.col.FindOne(ctx, bson.M{"_id": donationID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return doc.toModel()
}

func (s *MongoStore) Update(ctx context.Context, d *models.Donation, expectedVersion int) error {
	res, err := s.col.ReplaceOne(ctx,
		bson.M{"_id": d.ID.String(), "version": expectedVersion}, toDoc(d))
	if err != nil {
		return fmt.Errorf("replace donation: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return s.missingOrStale(ctx, d.ID)
}

func (s *MongoStore) Delete(ctx context.Context, donationID id.DonationID, expectedVersion int) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": donationID.String(), "version": expectedVersion})
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	if res.DeletedCount > 0 {
		return nil
	}
	return s.missingOrStale(ctx, donationID)
}

func (s *MongoStore) missingOrStale(ctx context.Context, donationID id.DonationID) error {
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": donationID.String()})
	if err != nil {
		return fmt.Errorf("count donation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *MongoStore) ListAvailable(ctx context.Context, filter models.ListFilter) ([]*models.Donation, error) {
	filter = filter.Normalize()

	query := bson.M{"status": models.StatusAvailable.String()}
	if len(filter.Categories) > 0 {
		cats := make([]string, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			cats = append(cats, c.String())
		}
		query["category"] = bson.M{"$in": cats}
	}
	if q := pstrings.NormalizeSearch(filter.Search); q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		query["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
	}
	if filter.Near != nil {
		query["geo"] = bson.M{"$geoWithin": bson.M{"$centerSphere": bson.A{
			bson.A{filter.Near.Origin.Lng, filter.Near.Origin.Lat},
			filter.Near.RadiusRadians(),
		}}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list available donations: %w", err)
	}
	return decodeAll(ctx, cur)
}

// ListNearby orders by $geoNear and reports haversine distances so results
// agree with the other stores.
func (s *MongoStore) ListNearby(ctx context.Context, q models.GeoQuery, limit int) ([]models.NearbyResult, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":          geoJSONPoint{Type: "Point", Coordinates: []float64{q.Origin.Lng, q.Origin.Lat}},
			"distanceField": "distance_m",
			"maxDistance":   q.RadiusKm * 1000,
			"spherical":     true,
			"query":         bson.M{"status": models.StatusAvailable.String()},
		}}},
		{{Key: "$limit", Value: limit + 1}},
		{{Key: "$project", Value: bson.M{"distance_m": 0}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list nearby donations: %w", err)
	}
	donations, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, err
	}

	results := make([]models.NearbyResult, 0, len(donations))
	for _, d := range donations {
		dist := q.Origin.DistanceKm(d.Location.Point())
		if dist > q.RadiusKm {
			continue
		}
		results = append(results, models.NearbyResult{Donation: d, DistanceKm: dist})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *MongoStore) ListByDonor(ctx context.Context, donorID id.UserID) ([]*models.Donation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{"donor_id": donorID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("list donor donations: %w", err)
	}
	return decodeAll(ctx, cur)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*models.Donation, error) {
	defer cur.Close(ctx)
	out := make([]*models.Donation, 0)
	for cur.Next(ctx) {
		var doc donationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode donation: %w", err)
		}
		d, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
