package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	donationhandler "givebridge/internal/donation/handler"
	ngohandler "givebridge/internal/ngo/handler"
	platformmetrics "givebridge/internal/platform/metrics"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/httputil"
	"givebridge/pkg/platform/middleware/auth"
	"givebridge/pkg/platform/middleware/metadata"
	"givebridge/pkg/platform/middleware/request"
	"givebridge/pkg/platform/middleware/requesttime"
)

type routerDeps struct {
	logger    *slog.Logger
	metrics   *platformmetrics.Metrics
	validator auth.JWTValidator
	donations *donationhandler.Handler
	ngos      *ngohandler.Handler
	checks    map[string]func(context.Context) error
}

// newRouter mounts the public probes and every authenticated API route.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(deps.metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(deps.checks))
	r.Handle("/metrics", platformmetrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.validator, deps.logger))
		deps.donations.Register(r)
		deps.ngos.Register(r)
	})
	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, name+" unavailable"))
				return
			}
			status[name] = "ok"
		}
		httputil.WriteSuccess(w, http.StatusOK, map[string]any{"status": "ok", "dependencies": status})
	}
}
