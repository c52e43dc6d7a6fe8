// Package admin guards the /admin route group.
package admin

import (
	"log/slog"
	"net/http"

	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/middleware/auth"
)

// RequireAdmin allows only principals with the admin role.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return auth.RequireRole(logger, id.RoleAdmin)
}
