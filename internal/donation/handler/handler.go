package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/httputil"
	"givebridge/pkg/platform/middleware/auth"
	"givebridge/pkg/requestcontext"
)

// Service is the donation lifecycle engine as seen by the HTTP layer.
type Service interface {
	CreateDonation(ctx context.Context, p id.Principal, params models.NewDonationParams) (*models.Donation, error)
	RequestStatusChange(ctx context.Context, donationID id.DonationID, p id.Principal, target string, reason string) (*models.Donation, error)
	GetByID(ctx context.Context, donationID id.DonationID, p id.Principal) (*models.Donation, error)
	ListAvailable(ctx context.Context, filter models.ListFilter) ([]*models.Donation, error)
	ListNearby(ctx context.Context, q models.GeoQuery) ([]models.NearbyResult, error)
	ListByDonor(ctx context.Context, donorID id.UserID, p id.Principal) ([]*models.Donation, error)
	Delete(ctx context.Context, donationID id.DonationID, p id.Principal) error
}

// Handler serves the donation endpoints. Routes expect RequireAuth to have
// placed the caller principal in the request context.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the donation routes on r.
func (h *Handler) Register(r chi.Router) {
	donorOnly := auth.RequireRole(h.logger, id.RoleDonor)

	r.Route("/api/donations", func(r chi.Router) {
		r.With(donorOnly).Post("/", h.HandleCreate)
		r.Get("/", h.HandleListAvailable)
		r.Get("/nearby", h.HandleListNearby)
		r.With(donorOnly).Get("/mine", h.HandleListMine)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}/status", h.HandleStatusChange)
		r.With(auth.RequireRole(h.logger, id.RoleDonor, id.RoleAdmin)).Delete("/{id}", h.HandleDelete)
	})
	r.With(auth.RequireRole(h.logger, id.RoleDonor, id.RoleAdmin)).
		Get("/api/donors/{donorID}/donations", h.HandleListByDonor)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CreateDonationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid create donation request",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	req.Normalize()

	d, err := h.service.CreateDonation(ctx, p, req.Params())
	if err != nil {
		h.writeServiceError(ctx, w, "create donation", err)
		return
	}
	writeDonation(w, http.StatusCreated, d)
}

func (h *Handler) HandleStatusChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	donationID, ok := h.donationID(w, r)
	if !ok {
		return
	}

	var req StatusChangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}

	d, err := h.service.RequestStatusChange(ctx, donationID, p, req.Status, reason)
	if err != nil {
		h.writeServiceError(ctx, w, "change donation status", err)
		return
	}
	writeDonation(w, http.StatusOK, d)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	donationID, ok := h.donationID(w, r)
	if !ok {
		return
	}

	d, err := h.service.GetByID(ctx, donationID, p)
	if err != nil {
		h.writeServiceError(ctx, w, "get donation", err)
		return
	}
	writeDonation(w, http.StatusOK, d)
}

func (h *Handler) HandleListAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ds, err := h.service.ListAvailable(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, "list donations", err)
		return
	}
	filter = filter.Normalize()
	resp := toListResponse(ds)
	resp.Limit, resp.Offset = filter.Limit, filter.Offset
	httputil.WriteSuccess(w, http.StatusOK, resp)
}

func (h *Handler) HandleListNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseNearbyQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.service.ListNearby(ctx, q)
	if err != nil {
		h.writeServiceError(ctx, w, "list nearby donations", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toNearbyResponse(results, q.RadiusKm))
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	h.listByDonor(w, r, p.ID, p)
}

func (h *Handler) HandleListByDonor(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	donorID, err := id.ParseUserID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.listByDonor(w, r, donorID, p)
}

func (h *Handler) listByDonor(w http.ResponseWriter, r *http.Request, donorID id.UserID, p id.Principal) {
	ctx := r.Context()
	ds, err := h.service.ListByDonor(ctx, donorID, p)
	if err != nil {
		h.writeServiceError(ctx, w, "list donor donations", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toListResponse(ds))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	donationID, ok := h.donationID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, donationID, p); err != nil {
		h.writeServiceError(ctx, w, "delete donation", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"id": donationID.String()})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (id.Principal, bool) {
	p, ok := requestcontext.Principal(r.Context())
	if !ok {
		// RequireAuth was not mounted in front of this route.
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Principal{}, false
	}
	return p, true
}

func (h *Handler) donationID(w http.ResponseWriter, r *http.Request) (id.DonationID, bool) {
	donationID, err := id.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DonationID{}, false
	}
	return donationID, true
}

// writeServiceError logs internal failures at ERROR and expected outcomes at
// DEBUG before writing the envelope.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.DebugContext(ctx, action+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
		)
	}
	httputil.WriteError(w, err)
}

func writeDonation(w http.ResponseWriter, status int, d *models.Donation) {
	httputil.WriteJSON(w, status, donationEnvelope{
		Success:   true,
		Donation:  toDonationResponse(d),
		Timestamp: time.Now().UTC(),
	})
}
