//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"givebridge/internal/ngo/models"
	"givebridge/internal/ngo/store"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ngos"))
}

func (s *PostgresStoreSuite) newNGO(reg string, createdAt time.Time) *models.NGO {
	n, err := models.NewNGO(id.UserID(uuid.New()), "NGO "+reg, reg, "team@"+reg+".org", createdAt.Truncate(time.Microsecond))
	s.Require().NoError(err)
	return n
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	n := s.newNGO("rt1", time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, n))

	found, err := s.store.FindByID(ctx, n.ID)
	s.Require().NoError(err)
	s.Equal(n, found)

	_, err = s.store.FindByID(ctx, id.UserID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUniqueness() {
	ctx := context.Background()
	n := s.newNGO("dup1", time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, n))

	s.Run("same id", func() {
		again := *n
		again.RegistrationNumber = "OTHER"
		s.ErrorIs(s.store.Create(ctx, &again), sentinel.ErrAlreadyUsed)
	})

	s.Run("same registration number", func() {
		s.ErrorIs(s.store.Create(ctx, s.newNGO("dup1", time.Now().UTC())), sentinel.ErrAlreadyUsed)
	})
}

func (s *PostgresStoreSuite) TestVerificationLifecycle() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	n := s.newNGO("life1", now)
	s.Require().NoError(s.store.Create(ctx, n))

	s.Require().NoError(n.Reject("missing certificate", now.Add(time.Minute)))
	s.Require().NoError(s.store.Update(ctx, n))
	found, err := s.store.FindByID(ctx, n.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, found.Status)
	s.Require().NotNil(found.RejectionReason)
	s.Equal("missing certificate", *found.RejectionReason)

	s.Require().NoError(n.Verify(now.Add(2 * time.Minute)))
	s.Require().NoError(s.store.Update(ctx, n))
	found, err = s.store.FindByID(ctx, n.ID)
	s.Require().NoError(err)
	s.True(found.IsVerified())
	s.Nil(found.RejectionReason)
	s.Require().NotNil(found.VerifiedAt)
	s.True(found.VerifiedAt.Equal(now.Add(2 * time.Minute)))

	s.ErrorIs(s.store.Update(ctx, s.newNGO("ghost", now)), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByStatus() {
	ctx := context.Background()
	base := time.Now().UTC()
	first := s.newNGO("ls1", base.Add(-2*time.Hour))
	second := s.newNGO("ls2", base.Add(-time.Hour))
	verified := s.newNGO("ls3", base)
	s.Require().NoError(verified.Verify(base))
	for _, n := range []*models.NGO{second, verified, first} {
		s.Require().NoError(s.store.Create(ctx, n))
	}

	pending, err := s.store.ListByStatus(ctx, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].ID)
	s.Equal(second.ID, pending[1].ID)

	all, err := s.store.ListByStatus(ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}
