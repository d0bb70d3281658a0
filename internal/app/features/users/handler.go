// internal/app/features/users/handler.go
package users

import (
	"net/http"

	"github.com/dalemusser/chathub/internal/app/chat"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/webapi"
	"go.uber.org/zap"
)

// OnlineSource reports which users currently hold a live socket. The hub
// implements it; tests substitute a stub.
type OnlineSource interface {
	Online() []string
}

// Handler serves the conversation sidebar: everyone the caller can start a
// direct conversation with.
type Handler struct {
	Users  *userstore.Store
	Online OnlineSource
	Log    *zap.Logger
}

func NewHandler(users *userstore.Store, online OnlineSource, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  users,
		Online: online,
		Log:    logger,
	}
}

type userRow struct {
	chat.UserSummary
	IsOnline bool `json:"is_online"`
}

// ServeList handles GET /api/users: every user except the caller, sorted by
// name, each flagged with current presence.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	myID, err := me.ObjectID()
	if err != nil {
		webapi.Message(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.Users.ListOthers(r.Context(), myID)
	if err != nil {
		h.Log.Error("users: list", zap.Error(err))
		webapi.Message(w, http.StatusInternalServerError, "could not load users")
		return
	}

	online := make(map[string]bool, 8)
	for _, id := range h.Online.Online() {
		online[id] = true
	}

	rows := make([]userRow, 0, len(list))
	for _, u := range list {
		rows = append(rows, userRow{
			UserSummary: chat.NewUserSummary(u),
			IsOnline:    online[u.ID.Hex()],
		})
	}
	webapi.Respond(w, http.StatusOK, map[string]any{"users": rows})
}
