// internal/app/features/ws/handler.go
package ws

import (
	"net/http"

	"github.com/dalemusser/chathub/internal/app/realtime/hub"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades a session-authenticated request to a websocket and hands
// the connection to the hub.
type Handler struct {
	Hub *hub.Hub
	Log *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, allowedOrigins []string, logger *zap.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		Hub: h,
		Log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same-origin requests (no Origin header) and configured
			// origins pass; everything else is rejected before upgrade.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				return allowed[origin]
			},
		},
	}
}

// Serve handles GET /ws. RequireSignedIn has already vetted the session, so
// a missing user here is a wiring bug, not a client mistake.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure to the client.
		h.Log.Warn("websocket upgrade failed",
			zap.String("user_id", u.ID),
			zap.Error(err))
		return
	}

	h.Hub.Attach(u.ID, u.Name, conn)
}
