//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"givebridge/internal/donation/models"
	"givebridge/internal/donation/store"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *store.MongoStore
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.mongo = containers.GetManager().GetMongo(s.T())
	s.store = store.NewMongo(s.mongo.Database("givebridge_test"))
}

func (s *MongoStoreSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.mongo.Database("givebridge_test").Collection(store.DonationsCollection).DeleteMany(ctx, bson.M{})
	s.Require().NoError(err)
	s.Require().NoError(s.store.EnsureIndexes(ctx))
}

func (s *MongoStoreSuite) TestIndexes() {
	ctx := context.Background()
	cur, err := s.mongo.Database("givebridge_test").Collection(store.DonationsCollection).Indexes().List(ctx)
	s.Require().NoError(err)
	var specs []bson.M
	s.Require().NoError(cur.All(ctx, &specs))

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec["name"].(string))
	}
	s.Subset(names, []string{
		"geo_2dsphere", "status_1_category_1_created_at_-1", "category_1",
		"created_at_-1", "food_expiry_1", "donor_id_1_created_at_-1", "accepted_by_1",
	})

	s.Run("ensuring twice is idempotent", func() {
		s.NoError(s.store.EnsureIndexes(ctx))
	})
}

func (s *MongoStoreSuite) TestCreateFindUpdate() {
	ctx := context.Background()
	ngo := id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleNGO}
	now := time.Now().UTC().Truncate(time.Millisecond)
	d := newTestDonation(s.T(), id.UserID(uuid.New()), "financial", "Fund", 48.8566, 2.3522, now)

	s.Require().NoError(s.store.Create(ctx, d))
	s.ErrorIs(s.store.Create(ctx, d), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Details, found.Details)
	s.InDelta(48.8566, found.Location.Lat, 1e-9)
	s.InDelta(2.3522, found.Location.Lng, 1e-9)

	expected := found.Version
	s.Require().NoError(advance(found, ngo, models.StatusAccepted, now))
	s.Require().NoError(s.store.Update(ctx, found, expected))
	s.ErrorIs(s.store.Update(ctx, found, expected), sentinel.ErrConflict)

	reloaded, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, reloaded.Status)
	s.Require().NotNil(reloaded.AcceptedBy)
	s.Equal(ngo.ID, *reloaded.AcceptedBy)

	s.ErrorIs(s.store.Delete(ctx, d.ID, expected), sentinel.ErrConflict)
	s.Require().NoError(s.store.Delete(ctx, d.ID, reloaded.Version))
	_, err = s.store.FindByID(ctx, d.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestGeoQueries() {
	ctx := context.Background()
	donor := id.UserID(uuid.New())
	now := time.Now().UTC()
	origin := models.GeoPoint{Lat: 40.7128, Lng: -74.0060}

	nyc := newTestDonation(s.T(), donor, "books", "City (hardcover)", 40.7128, -74.0060, now.Add(-3*time.Hour))
	brooklyn := newTestDonation(s.T(), donor, "clothing", "Coats", 40.6782, -73.9442, now.Add(-time.Hour))
	boston := newTestDonation(s.T(), donor, "books", "Guides", 42.3601, -71.0589, now.Add(-2*time.Hour))
	for _, d := range []*models.Donation{nyc, brooklyn, boston} {
		s.Require().NoError(s.store.Create(ctx, d))
	}

	s.Run("nearby is nearest first", func() {
		got, err := s.store.ListNearby(ctx, models.GeoQuery{Origin: origin, RadiusKm: 50}, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(nyc.ID, got[0].Donation.ID)
		s.Equal(brooklyn.ID, got[1].Donation.ID)
	})

	s.Run("available within radius newest first", func() {
		got, err := s.store.ListAvailable(ctx, models.ListFilter{Near: &models.GeoQuery{Origin: origin, RadiusKm: 20}})
		s.Require().NoError(err)
		s.Equal([]id.DonationID{brooklyn.ID, nyc.ID}, donationIDs(got))
	})

	s.Run("search treats input literally", func() {
		got, err := s.store.ListAvailable(ctx, models.ListFilter{Search: "(hardcover)"})
		s.Require().NoError(err)
		s.Equal([]id.DonationID{nyc.ID}, donationIDs(got))
	})

	s.Run("by donor", func() {
		got, err := s.store.ListByDonor(ctx, donor)
		s.Require().NoError(err)
		s.Equal([]id.DonationID{brooklyn.ID, boston.ID, nyc.ID}, donationIDs(got))
	})
}
