// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the user listing routes (mounted under /api/users).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	return r
}
