package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "givebridge/internal/jwt_token"
	"givebridge/internal/platform/config"
	id "givebridge/pkg/domain"
	"givebridge/pkg/testutil"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.Server{Addr: ":0", Environment: "development"},
		Auth: config.Auth{
			JWTSigningKey: "router-test-key",
			JWTIssuer:     "givebridge",
			JWTAudience:   "givebridge-api",
		},
		Store:    config.Store{Backend: config.BackendMemory},
		Donation: config.Donation{FoodMinLead: 3 * time.Hour},
	}
}

// TestRouter drives the assembled in-memory process through its HTTP surface.
func TestRouter(t *testing.T) {
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := buildApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	token := func(p id.Principal) string {
		tok, err := jwt.GenerateAccessToken(p, time.Hour)
		require.NoError(t, err)
		return tok
	}
	donor := id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleDonor}
	ngo := id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleNGO}

	testutil.Given(t, "the assembled router", func(t *testing.T) {
		testutil.When(t, "probing health and metrics", func(t *testing.T) {
			health := testutil.DoRequest(a.handler, testutil.NewRequest(t, http.MethodGet, "/health"))
			metrics := testutil.DoRequest(a.handler, testutil.NewRequest(t, http.MethodGet, "/metrics"))

			testutil.Then(t, "both answer without a token", func(t *testing.T) {
				testutil.AssertStatusOK(t, health)
				testutil.AssertStatusOK(t, metrics)
			})
		})

		testutil.When(t, "calling the API without a bearer token", func(t *testing.T) {
			rr := testutil.DoRequest(a.handler, testutil.NewRequest(t, http.MethodGet, "/api/donations"))

			testutil.Then(t, "it is unauthorized", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "a donor posts and an ngo accepts", func(t *testing.T) {
			create := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/api/donations", map[string]any{
				"category":     "books",
				"title":        "Children's books",
				"quantity":     12,
				"location":     map[string]any{"address": "5 Elm St", "lat": 40.71, "lng": -74.0},
				"pickupOption": "pickup",
			}), token(donor))
			created := testutil.DoRequest(a.handler, create)
			require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

			type envelope struct {
				Donation struct {
					ID         string  `json:"id"`
					Status     string  `json:"status"`
					AcceptedBy *string `json:"acceptedBy"`
				} `json:"donation"`
			}
			donationID := testutil.UnmarshalResponse[envelope](t, created).Donation.ID

			accept := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPatch,
				"/api/donations/"+donationID+"/status", map[string]any{"status": "accepted"}), token(ngo))
			accepted := testutil.DoRequest(a.handler, accept)

			testutil.Then(t, "the donation is assigned to the ngo", func(t *testing.T) {
				testutil.AssertStatusOK(t, accepted)
				body := testutil.UnmarshalResponse[envelope](t, accepted)
				assert.Equal(t, "accepted", body.Donation.Status)
				require.NotNil(t, body.Donation.AcceptedBy)
				assert.Equal(t, ngo.ID.String(), *body.Donation.AcceptedBy)
			})

			again := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPatch,
				"/api/donations/"+donationID+"/status", map[string]any{"status": "accepted"}), token(ngo))
			rr := testutil.DoRequest(a.handler, again)

			testutil.And(t, "a second accept is an invalid transition", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_transition")
			})
		})

		testutil.When(t, "a donor calls an admin route", func(t *testing.T) {
			rr := testutil.DoRequest(a.handler,
				testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/admin/ngos"), token(donor)))

			testutil.Then(t, "it is forbidden", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
			})
		})
	})
}
