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

	"givebridge/internal/ngo/handler/mocks"
	"givebridge/internal/ngo/models"
	"givebridge/internal/ngo/service"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/requestcontext"
)

type NGOHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	handler *Handler
	admin   id.Principal
	ngo     id.Principal
	now     time.Time
}

func TestNGOHandlerSuite(t *testing.T) {
	suite.Run(t, new(NGOHandlerSuite))
}

func (s *NGOHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)
	s.handler = New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.admin = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleAdmin}
	s.ngo = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleNGO}
	s.now = time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)
}

func (s *NGOHandlerSuite) serve(p *id.Principal, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
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

func (s *NGOHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *NGOHandlerSuite) profile() *models.NGO {
	n, err := models.NewNGO(s.ngo.ID, "River Aid", "RA-9", "hello@riveraid.org", s.now)
	s.Require().NoError(err)
	return n
}

func (s *NGOHandlerSuite) TestRegisterProfile() {
	s.Run("201 with the pending profile", func() {
		s.service.EXPECT().RegisterProfile(gomock.Any(), s.ngo, service.RegisterParams{
			Name: "River Aid", RegistrationNumber: "ra-9", ContactEmail: "hello@riveraid.org",
		}).Return(s.profile(), nil)

		w := s.serve(&s.ngo, http.MethodPost, "/api/ngos/profile",
			`{"name":"River Aid","registrationNumber":"ra-9","contactEmail":"hello@riveraid.org"}`)
		s.Equal(http.StatusCreated, w.Code)
		data := s.decode(w)["data"].(map[string]any)
		s.Equal("pending", data["status"])
		s.Equal("RA-9", data["registrationNumber"])
		s.NotContains(data, "verifiedAt")
	})

	s.Run("donor role is refused before the service", func() {
		donor := id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleDonor}
		w := s.serve(&donor, http.MethodPost, "/api/ngos/profile", `{"name":"x"}`)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("unknown fields are a bad request", func() {
		w := s.serve(&s.ngo, http.MethodPost, "/api/ngos/profile", `{"mission":"x"}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("duplicate registration is a conflict", func() {
		s.service.EXPECT().RegisterProfile(gomock.Any(), s.ngo, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "already registered"))
		w := s.serve(&s.ngo, http.MethodPost, "/api/ngos/profile", `{"name":"River Aid"}`)
		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *NGOHandlerSuite) TestGet() {
	s.Run("any principal can read a profile", func() {
		s.service.EXPECT().Get(gomock.Any(), s.ngo.ID).Return(s.profile(), nil)
		w := s.serve(&s.admin, http.MethodGet, "/api/ngos/"+s.ngo.ID.String(), "")
		s.Equal(http.StatusOK, w.Code)
		s.Equal("River Aid", s.decode(w)["data"].(map[string]any)["name"])
	})

	s.Run("malformed id", func() {
		w := s.serve(&s.admin, http.MethodGet, "/api/ngos/not-a-uuid", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing profile", func() {
		s.service.EXPECT().Get(gomock.Any(), s.ngo.ID).Return(nil, dErrors.New(dErrors.CodeNotFound, "ngo not found"))
		w := s.serve(&s.admin, http.MethodGet, "/api/ngos/"+s.ngo.ID.String(), "")
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *NGOHandlerSuite) TestAdminQueue() {
	s.Run("lists by status", func() {
		s.service.EXPECT().ListByStatus(gomock.Any(), s.admin, "pending").Return([]*models.NGO{s.profile()}, nil)
		w := s.serve(&s.admin, http.MethodGet, "/admin/ngos?status=pending", "")
		s.Equal(http.StatusOK, w.Code)
		data := s.decode(w)["data"].(map[string]any)
		s.EqualValues(1, data["count"])
	})

	s.Run("ngo cannot reach admin routes", func() {
		w := s.serve(&s.ngo, http.MethodPost, "/admin/ngos/"+s.ngo.ID.String()+"/verify", "")
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("unauthenticated", func() {
		w := s.serve(nil, http.MethodGet, "/admin/ngos", "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("verify", func() {
		n := s.profile()
		s.Require().NoError(n.Verify(s.now))
		s.service.EXPECT().Verify(gomock.Any(), s.admin, s.ngo.ID).Return(n, nil)

		w := s.serve(&s.admin, http.MethodPost, "/admin/ngos/"+s.ngo.ID.String()+"/verify", "")
		s.Equal(http.StatusOK, w.Code)
		data := s.decode(w)["data"].(map[string]any)
		s.Equal("verified", data["status"])
		s.Contains(data, "verifiedAt")
	})

	s.Run("reject passes the reason", func() {
		n := s.profile()
		s.Require().NoError(n.Reject("no charter", s.now))
		s.service.EXPECT().Reject(gomock.Any(), s.admin, s.ngo.ID, "no charter").Return(n, nil)

		w := s.serve(&s.admin, http.MethodPost, "/admin/ngos/"+s.ngo.ID.String()+"/reject", `{"reason":"no charter"}`)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("no charter", s.decode(w)["data"].(map[string]any)["rejectionReason"])
	})

	s.Run("invalid transition is a client error", func() {
		s.service.EXPECT().Verify(gomock.Any(), s.admin, s.ngo.ID).
			Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "ngo is already verified"))
		w := s.serve(&s.admin, http.MethodPost, "/admin/ngos/"+s.ngo.ID.String()+"/verify", "")
		s.Equal(dErrors.ToHTTPStatus(dErrors.CodeInvalidTransition), w.Code)
	})
}
