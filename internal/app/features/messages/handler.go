// internal/app/features/messages/handler.go
package messages

import (
	"net/http"

	"github.com/dalemusser/chathub/internal/app/chat"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/webapi"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the REST surface for direct messages. Group messages live under
// the groups feature; this one is peer-addressed.
type Handler struct {
	Messages *chat.MessageService
	Log      *zap.Logger
}

func NewHandler(messages *chat.MessageService, logger *zap.Logger) *Handler {
	return &Handler{Messages: messages, Log: logger}
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (me, peer primitive.ObjectID, ok bool) {
	u, found := auth.CurrentUser(r)
	if !found {
		webapi.Message(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	me, err := u.ObjectID()
	if err != nil {
		webapi.Message(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	peer, err = chat.ParseID(chi.URLParam(r, "peerID"))
	if err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid id")
		return
	}
	return me, peer, true
}

// ServeHistory handles GET /api/messages/{peerID}: both directions of the
// conversation, oldest first.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	me, peer, ok := h.ids(w, r)
	if !ok {
		return
	}
	history, err := h.Messages.DirectHistory(r.Context(), me, peer)
	if err != nil {
		webapi.Fail(w, h.Log, "messages: history", err)
		return
	}
	webapi.Respond(w, http.StatusOK, map[string]any{"messages": history})
}

type sendRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// HandleSend handles POST /api/messages/{peerID}.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	me, peer, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if err := webapi.Decode(w, r, &req); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.Messages.SendDirect(r.Context(), me, chat.SendDirectInput{
		ReceiverID: peer.Hex(),
		Text:       req.Text,
		Image:      req.Image,
	})
	if err != nil {
		webapi.Fail(w, h.Log, "messages: send", err)
		return
	}
	webapi.Respond(w, http.StatusCreated, view)
}
