// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/webapi"
	"go.uber.org/zap"
)

// Handler clears the session cookie.
type Handler struct {
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

func NewHandler(sessions *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sessions, Log: logger}
}

// HandleLogout handles POST /logout. Signing out an already-anonymous caller
// succeeds; the end state is the same either way.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Error("logout: clear session", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not sign out")
		return
	}
	webapi.Message(w, http.StatusOK, "signed out")
}
