// internal/app/features/messages/routes.go
package messages

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

// Routes returns the direct-message routes (mounted under /api/messages).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	sendLimit := ratelimit.New(30, time.Minute)

	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/{peerID}", h.ServeHistory)
	r.With(sendLimit.Middleware(userKey, "sending too fast; slow down")).
		Post("/{peerID}", h.HandleSend)
	return r
}
