package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

type NewDonationSuite struct {
	suite.Suite
	now   time.Time
	donor id.UserID
}

func TestNewDonationSuite(t *testing.T) {
	suite.Run(t, new(NewDonationSuite))
}

func (s *NewDonationSuite) SetupTest() {
	s.now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.donor = id.UserID(uuid.New())
}

func (s *NewDonationSuite) params(category string) NewDonationParams {
	return NewDonationParams{
		Category:     category,
		Title:        "Fresh bread",
		Location:     Location{Address: "1 Main St", Lat: 52.52, Lng: 13.40},
		PickupOption: "pickup",
		Urgency:      "high",
	}
}

func (s *NewDonationSuite) create(p NewDonationParams) (*Donation, error) {
	return NewDonation(id.NewDonationID(), s.donor, p, s.now, DefaultFoodMinLead)
}

func fieldsOf(err error) []string {
	de, ok := dErrors.From(err)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(de.Details))
	for _, d := range de.Details {
		out = append(out, d.Field)
	}
	return out
}

func (s *NewDonationSuite) TestFoodExpiry() {
	s.Run("two hours ahead is rejected", func() {
		p := s.params("food")
		expiry := s.now.Add(2 * time.Hour)
		p.FoodExpiry = &expiry

		_, err := s.create(p)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(fieldsOf(err), "foodExpiry")
	})

	s.Run("exactly three hours ahead is rejected", func() {
		p := s.params("food")
		expiry := s.now.Add(3 * time.Hour)
		p.FoodExpiry = &expiry

		_, err := s.create(p)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("four hours ahead is accepted", func() {
		p := s.params("food")
		expiry := s.now.Add(4 * time.Hour)
		p.FoodExpiry = &expiry

		d, err := s.create(p)
		s.Require().NoError(err)
		s.Equal(StatusAvailable, d.Status)
		s.Equal(FoodDetails{Expiry: expiry, Quantity: 1}, d.Details)
	})

	s.Run("missing expiry is rejected", func() {
		_, err := s.create(s.params("food"))
		s.Contains(fieldsOf(err), "foodExpiry")
	})
}

func (s *NewDonationSuite) TestFinancialAmount() {
	cases := []struct {
		amount string
		valid  bool
		cents  int64
	}{
		{amount: "-5", valid: false},
		{amount: "10.005", valid: false},
		{amount: "0", valid: false},
		{amount: "0.00", valid: false},
		{amount: "abc", valid: false},
		{amount: "1e3", valid: true, cents: 100000},
		{amount: "2.5E+1", valid: true, cents: 2500},
		{amount: "125e-2", valid: true, cents: 125},
		{amount: "1e-3", valid: false},
		{amount: "1e40", valid: false},
		{amount: "e3", valid: false},
		{amount: "1e", valid: false},
		{amount: "0e5", valid: false},
		{amount: "100.50", valid: true, cents: 10050},
		{amount: "100.5", valid: true, cents: 10050},
		{amount: "0.01", valid: true, cents: 1},
		{amount: "25", valid: true, cents: 2500},
	}
	for _, tc := range cases {
		s.Run(tc.amount, func() {
			p := s.params("financial")
			amount := tc.amount
			p.Amount = &amount

			d, err := s.create(p)
			if !tc.valid {
				s.True(dErrors.HasCode(err, dErrors.CodeValidation))
				s.Contains(fieldsOf(err), "amount")
				return
			}
			s.Require().NoError(err)
			s.Equal(FinancialDetails{AmountCents: tc.cents}, d.Details)
		})
	}

	s.Run("missing amount is rejected", func() {
		_, err := s.create(s.params("financial"))
		s.Contains(fieldsOf(err), "amount")
	})
}

func (s *NewDonationSuite) TestCollectsEveryViolation() {
	p := NewDonationParams{
		Category:     "food",
		Title:        strings.Repeat("x", MaxTitleLength+1),
		Location:     Location{Lat: 91, Lng: -181},
		PickupOption: "teleport",
		Urgency:      "urgent",
		Images:       []string{"1", "2", "3", "4", "5", "6"},
	}
	_, err := s.create(p)
	s.Require().Error(err)
	s.ElementsMatch([]string{
		"title", "location.address", "location.lat", "location.lng",
		"pickupOption", "urgency", "images", "foodExpiry",
	}, fieldsOf(err))
}

func (s *NewDonationSuite) TestDefaultsAndItems() {
	p := s.params("books")
	p.PickupOption = ""
	p.Urgency = ""
	p.Images = []string{" a.jpg", "a.jpg", "b.jpg "}
	qty := 3
	p.Quantity = &qty

	d, err := s.create(p)
	s.Require().NoError(err)
	s.Equal(PickupByNGO, d.PickupOption)
	s.Equal(UrgencyMedium, d.Urgency)
	s.Equal([]string{"a.jpg", "b.jpg"}, d.Images)
	s.Equal(ItemDetails{Quantity: 3}, d.Details)
	s.Equal(1, d.Version)
	s.Nil(d.AcceptedBy)
	s.Nil(d.AcceptedAt)
	s.Nil(d.CancelledAt)
	s.NoError(d.CheckInvariants())
}

func (s *NewDonationSuite) TestRejectsUnknownCategory() {
	_, err := s.create(s.params("weapons"))
	s.Contains(fieldsOf(err), "category")
}

func TestParseAmount(t *testing.T) {
	cents, err := ParseAmount(" 12.3 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1230), cents)

	_, err = ParseAmount("10000000001")
	assert.Error(t, err)

	_, err = ParseAmount("12.")
	assert.Error(t, err)

	cents, err = ParseAmount("1.5E+2")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), cents)

	_, err = ParseAmount("1E+20")
	assert.ErrorContains(t, err, "too large")

	_, err = ParseAmount("3e-3")
	assert.ErrorContains(t, err, "two decimal places")

	assert.Equal(t, "12.30", FinancialDetails{AmountCents: 1230}.Amount())
}

func TestGeoPointDistance(t *testing.T) {
	berlin := GeoPoint{Lat: 52.5200, Lng: 13.4050}
	potsdam := GeoPoint{Lat: 52.3906, Lng: 13.0645}

	d := berlin.DistanceKm(potsdam)
	assert.InDelta(t, 27.0, d, 1.5)
	assert.InDelta(t, 0, berlin.DistanceKm(berlin), 1e-9)
	assert.True(t, GeoQuery{Origin: berlin, RadiusKm: 30}.Contains(potsdam))
	assert.False(t, GeoQuery{Origin: berlin, RadiusKm: 10}.Contains(potsdam))
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Limit: 1000, Offset: -3}.Normalize()
	assert.Equal(t, MaxPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, DefaultPageSize, ListFilter{}.Normalize().Limit)
	assert.True(t, ListFilter{}.HasCategory(CategoryFood))
	assert.False(t, ListFilter{Categories: []Category{CategoryBooks}}.HasCategory(CategoryFood))
}
