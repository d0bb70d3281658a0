// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes returns the account entry points, mounted at the site root.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignup)
	r.Post("/login", h.HandleLogin)
	return r
}
