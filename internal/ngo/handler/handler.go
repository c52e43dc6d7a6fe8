package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"givebridge/internal/ngo/models"
	"givebridge/internal/ngo/service"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/httputil"
	"givebridge/pkg/platform/middleware/admin"
	"givebridge/pkg/platform/middleware/auth"
	"givebridge/pkg/requestcontext"
)

type Service interface {
	RegisterProfile(ctx context.Context, p id.Principal, params service.RegisterParams) (*models.NGO, error)
	Verify(ctx context.Context, p id.Principal, ngoID id.UserID) (*models.NGO, error)
	Reject(ctx context.Context, p id.Principal, ngoID id.UserID, reason string) (*models.NGO, error)
	Get(ctx context.Context, ngoID id.UserID) (*models.NGO, error)
	ListByStatus(ctx context.Context, p id.Principal, status string) ([]*models.NGO, error)
}

// Handler serves NGO profile registration and the admin review queue.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(auth.RequireRole(h.logger, id.RoleNGO)).Post("/api/ngos/profile", h.HandleRegisterProfile)
	r.Get("/api/ngos/{id}", h.HandleGet)

	r.Route("/admin/ngos", func(r chi.Router) {
		r.Use(admin.RequireAdmin(h.logger))
		r.Get("/", h.HandleList)
		r.Post("/{id}/verify", h.HandleVerify)
		r.Post("/{id}/reject", h.HandleReject)
	})
}

func (h *Handler) HandleRegisterProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req RegisterProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.RegisterProfile(ctx, p, req.Params())
	if err != nil {
		h.writeServiceError(ctx, w, "register ngo profile", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, toNGOResponse(n))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ngoID, ok := h.ngoID(w, r)
	if !ok {
		return
	}

	n, err := h.service.Get(ctx, ngoID)
	if err != nil {
		h.writeServiceError(ctx, w, "get ngo", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toNGOResponse(n))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	ngos, err := h.service.ListByStatus(ctx, p, r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(ctx, w, "list ngos", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toListResponse(ngos))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	ngoID, ok := h.ngoID(w, r)
	if !ok {
		return
	}

	n, err := h.service.Verify(ctx, p, ngoID)
	if err != nil {
		h.writeServiceError(ctx, w, "verify ngo", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toNGOResponse(n))
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	ngoID, ok := h.ngoID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.Reject(ctx, p, ngoID, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "reject ngo", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toNGOResponse(n))
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (id.Principal, bool) {
	p, ok := requestcontext.Principal(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Principal{}, false
	}
	return p, true
}

func (h *Handler) ngoID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	ngoID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, false
	}
	return ngoID, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
