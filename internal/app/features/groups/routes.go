// internal/app/features/groups/routes.go
package groups

import (
	"net/http"
	"time"

	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

func userKey(r *http.Request) string {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return u.ID
}

func userGroupKey(r *http.Request) string {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return u.ID + ":" + chi.URLParam(r, "id")
}

// Routes returns the group routes (mounted under /api/groups).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	createLimit := ratelimit.New(10, time.Hour)
	addLimit := ratelimit.New(20, 15*time.Minute)
	sendLimit := ratelimit.New(30, time.Minute)

	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.With(createLimit.Middleware(userKey, "too many groups created; try again later")).
		Post("/", h.HandleCreate)
	r.Get("/", h.ServeMine)
	r.Get("/all", h.ServeDirectory)

	r.Route("/{id}", func(gr chi.Router) {
		gr.Get("/", h.ServeDetail)
		gr.Put("/", h.HandleUpdate)
		gr.Delete("/", h.HandleDelete)

		gr.Post("/join", h.HandleJoin)
		gr.Post("/leave", h.HandleLeave)

		gr.With(addLimit.Middleware(userKey, "too many member changes; try again later")).
			Post("/members", h.HandleAddMembers)
		gr.Get("/members", h.ServeMembers)
		gr.Delete("/members/{userID}", h.HandleRemoveMember)

		gr.Put("/admins", h.HandleAdmins)

		gr.Get("/messages", h.ServeMessages)
		gr.With(sendLimit.Middleware(userGroupKey, "sending too fast; slow down")).
			Post("/messages", h.HandleSendMessage)

		gr.Post("/read", h.HandleMarkRead)
	})
	return r
}
