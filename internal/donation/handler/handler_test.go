package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"givebridge/internal/donation/handler/mocks"
	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/requestcontext"
)

type DonationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	handler *Handler
	donor   id.Principal
	ngo     id.Principal
	now     time.Time
}

func TestDonationHandlerSuite(t *testing.T) {
	suite.Run(t, new(DonationHandlerSuite))
}

func (s *DonationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)
	s.handler = New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.donor = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleDonor}
	s.ngo = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleNGO}
	s.now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
}

// serve routes req through the registered handlers as principal p.
func (s *DonationHandlerSuite) serve(p *id.Principal, method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			s.Require().NoError(err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, target, reader)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(requestcontext.WithPrincipal(r.Context(), *p))
			}
			next.ServeHTTP(w, r)
		})
	})
	s.handler.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *DonationHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *DonationHandlerSuite) donation(category string) *models.Donation {
	params := models.NewDonationParams{
		Category: category,
		Title:    "Laptop",
		Location: models.Location{Address: "9 Pine Ave", Lat: 1, Lng: 2},
	}
	if category == "financial" {
		amount := "100.50"
		params.Amount = &amount
	}
	d, err := models.NewDonation(id.NewDonationID(), s.donor.ID, params, s.now, models.DefaultFoodMinLead)
	s.Require().NoError(err)
	return d
}

func (s *DonationHandlerSuite) TestCreate() {
	s.Run("decimal amount reaches the service unrounded", func() {
		d := s.donation("financial")
		s.service.EXPECT().CreateDonation(gomock.Any(), s.donor, gomock.Any()).DoAndReturn(
			func(_ any, _ id.Principal, params models.NewDonationParams) (*models.Donation, error) {
				s.Require().NotNil(params.Amount)
				s.Equal("100.50", *params.Amount)
				s.Equal("financial", params.Category)
				s.Equal("Laptop", params.Title)
				return d, nil
			})

		w := s.serve(&s.donor, http.MethodPost, "/api/donations",
			`{"category":" Financial ","title":" Laptop ","amount":100.50,"location":{"address":"9 Pine Ave","lat":1,"lng":2}}`)

		s.Equal(http.StatusCreated, w.Code)
		body := s.decode(w)
		s.Equal(true, body["success"])
		donation := body["donation"].(map[string]any)
		s.Equal(d.ID.String(), donation["id"])
		s.Equal("100.50", donation["amount"])
		s.Equal("available", donation["status"])
		s.Nil(donation["acceptedBy"])
	})

	s.Run("exponent amount is forwarded verbatim and parses to cents", func() {
		s.service.EXPECT().CreateDonation(gomock.Any(), s.donor, gomock.Any()).DoAndReturn(
			func(_ any, _ id.Principal, params models.NewDonationParams) (*models.Donation, error) {
				s.Require().NotNil(params.Amount)
				s.Equal("1e3", *params.Amount)
				cents, err := models.ParseAmount(*params.Amount)
				s.Require().NoError(err)
				s.Equal(int64(100000), cents)
				return s.donation("financial"), nil
			})

		w := s.serve(&s.donor, http.MethodPost, "/api/donations",
			`{"category":"financial","title":"Fund","amount":1e3,"location":{"address":"9 Pine Ave","lat":1,"lng":2}}`)
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("ngo cannot create", func() {
		w := s.serve(&s.ngo, http.MethodPost, "/api/donations", `{"category":"books"}`)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("unknown fields are rejected", func() {
		w := s.serve(&s.donor, http.MethodPost, "/api/donations", `{"category":"books","colour":"red"}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("bad_request", s.decode(w)["error"].(map[string]any)["code"])
	})

	s.Run("validation details are returned", func() {
		s.service.EXPECT().CreateDonation(gomock.Any(), s.donor, gomock.Any()).Return(nil,
			dErrors.Validation("invalid donation", []dErrors.FieldError{
				{Field: "title", Message: "title is required"},
				{Field: "foodExpiry", Message: "foodExpiry is required for food donations"},
			}))

		w := s.serve(&s.donor, http.MethodPost, "/api/donations", `{"category":"food"}`)
		s.Equal(http.StatusBadRequest, w.Code)
		body := s.decode(w)
		s.Equal(false, body["success"])
		errBody := body["error"].(map[string]any)
		s.Equal("validation_error", errBody["code"])
		s.Len(errBody["details"], 2)
		s.NotEmpty(body["timestamp"])
	})

	s.Run("missing principal is unauthorized", func() {
		w := s.serve(nil, http.MethodPost, "/api/donations", `{}`)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *DonationHandlerSuite) TestStatusChange() {
	d := s.donation("books")
	target := "/api/donations/" + d.ID.String() + "/status"

	s.Run("maps engine errors to statuses", func() {
		cases := []struct {
			code   dErrors.Code
			status int
		}{
			{dErrors.CodeNotFound, http.StatusNotFound},
			{dErrors.CodeForbidden, http.StatusForbidden},
			{dErrors.CodeInvalidTransition, http.StatusBadRequest},
			{dErrors.CodeConflict, http.StatusConflict},
			{dErrors.CodeInternal, http.StatusInternalServerError},
		}
		for _, tc := range cases {
			s.service.EXPECT().RequestStatusChange(gomock.Any(), d.ID, s.ngo, "collected", "").
				Return(nil, dErrors.New(tc.code, "nope"))

			w := s.serve(&s.ngo, http.MethodPatch, target, `{"status":"collected"}`)
			s.Equal(tc.status, w.Code, string(tc.code))
			s.Equal(string(tc.code), s.decode(w)["error"].(map[string]any)["code"])
		}
	})

	s.Run("passes the reason and returns the donation", func() {
		cancelled := d.Clone()
		cancelled.ApplyTransition(s.donor, models.StatusCancelled, "moved away", s.now)
		s.service.EXPECT().RequestStatusChange(gomock.Any(), d.ID, s.donor, "cancelled", "moved away").Return(cancelled, nil)

		w := s.serve(&s.donor, http.MethodPatch, target, `{"status":"cancelled","reason":"moved away"}`)
		s.Equal(http.StatusOK, w.Code)
		donation := s.decode(w)["donation"].(map[string]any)
		s.Equal("cancelled", donation["status"])
		s.Equal("moved away", donation["cancellationReason"])
	})

	s.Run("status is required", func() {
		w := s.serve(&s.donor, http.MethodPatch, target, `{}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("malformed id is rejected", func() {
		w := s.serve(&s.donor, http.MethodPatch, "/api/donations/not-a-uuid/status", `{"status":"accepted"}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *DonationHandlerSuite) TestListAvailable() {
	s.Run("parses filters", func() {
		s.service.EXPECT().ListAvailable(gomock.Any(), models.ListFilter{
			Categories: []models.Category{models.CategoryBooks, models.CategoryFood},
			Search:     "novel",
			Near:       &models.GeoQuery{Origin: models.GeoPoint{Lat: 52.1, Lng: 21}, RadiusKm: 15},
			Limit:      5,
			Offset:     10,
		}).Return([]*models.Donation{s.donation("books")}, nil)

		w := s.serve(&s.ngo, http.MethodGet,
			"/api/donations?category=books,food&q=novel&lat=52.1&lng=21&radiusKm=15&limit=5&offset=10", nil)
		s.Equal(http.StatusOK, w.Code)
		data := s.decode(w)["data"].(map[string]any)
		s.EqualValues(1, data["count"])
		s.EqualValues(5, data["limit"])
	})

	s.Run("unknown category is a validation error", func() {
		w := s.serve(&s.ngo, http.MethodGet, "/api/donations?category=toys", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("partial geo filter is rejected", func() {
		w := s.serve(&s.ngo, http.MethodGet, "/api/donations?lat=1", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *DonationHandlerSuite) TestListNearby() {
	d := s.donation("books")
	q := models.GeoQuery{Origin: models.GeoPoint{Lat: 1, Lng: 2}, RadiusKm: 25}
	s.service.EXPECT().ListNearby(gomock.Any(), q).Return([]models.NearbyResult{{Donation: d, DistanceKm: 1.5}}, nil)

	w := s.serve(&s.ngo, http.MethodGet, "/api/donations/nearby?lat=1&lng=2&radiusKm=25", nil)
	s.Equal(http.StatusOK, w.Code)
	data := s.decode(w)["data"].(map[string]any)
	first := data["donations"].([]any)[0].(map[string]any)
	s.Equal(d.ID.String(), first["id"])
	s.EqualValues(1.5, first["distanceKm"])

	w = s.serve(&s.ngo, http.MethodGet, "/api/donations/nearby?lat=1&lng=2", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *DonationHandlerSuite) TestListByDonor() {
	s.Run("mine lists the caller", func() {
		s.service.EXPECT().ListByDonor(gomock.Any(), s.donor.ID, s.donor).Return([]*models.Donation{}, nil)

		w := s.serve(&s.donor, http.MethodGet, "/api/donations/mine", nil)
		s.Equal(http.StatusOK, w.Code)
		data := s.decode(w)["data"].(map[string]any)
		s.Empty(data["donations"])
	})

	s.Run("explicit donor id", func() {
		other := id.UserID(uuid.New())
		s.service.EXPECT().ListByDonor(gomock.Any(), other, s.donor).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "not allowed"))

		w := s.serve(&s.donor, http.MethodGet, "/api/donors/"+other.String()+"/donations", nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("ngo is refused by role", func() {
		w := s.serve(&s.ngo, http.MethodGet, "/api/donations/mine", nil)
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *DonationHandlerSuite) TestGetAndDelete() {
	d := s.donation("electronics")

	s.service.EXPECT().GetByID(gomock.Any(), d.ID, s.ngo).Return(d, nil)
	w := s.serve(&s.ngo, http.MethodGet, "/api/donations/"+d.ID.String(), nil)
	s.Equal(http.StatusOK, w.Code)
	donation := s.decode(w)["donation"].(map[string]any)
	s.EqualValues(1, donation["quantity"])
	s.Equal([]any{}, donation["images"])

	s.service.EXPECT().Delete(gomock.Any(), d.ID, s.donor).Return(nil)
	w = s.serve(&s.donor, http.MethodDelete, "/api/donations/"+d.ID.String(), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.serve(&s.ngo, http.MethodDelete, "/api/donations/"+d.ID.String(), nil)
	s.Equal(http.StatusForbidden, w.Code)
}
