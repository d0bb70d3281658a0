// internal/app/features/ws/routes.go
package ws

import (
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the websocket endpoint (mounted at /ws).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.Serve)
	return r
}
