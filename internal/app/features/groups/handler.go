// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	"github.com/dalemusser/chathub/internal/app/chat"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/paging"
	"github.com/dalemusser/chathub/internal/app/system/webapi"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OnlineSource reports which users currently hold a live socket.
type OnlineSource interface {
	Online() []string
}

// Handler is the REST surface for groups: membership, info, admin roster,
// group messages, and read state. All decisions live in the chat services;
// the handler only parses, delegates, and writes.
type Handler struct {
	Groups   *chat.GroupService
	Messages *chat.MessageService
	Online   OnlineSource
	Log      *zap.Logger
}

func NewHandler(groups *chat.GroupService, messages *chat.MessageService, online OnlineSource, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:   groups,
		Messages: messages,
		Online:   online,
		Log:      logger,
	}
}

// callerID extracts the signed-in user's ObjectID. RequireSignedIn runs
// before every route here, so a missing or unparseable id means a broken
// session, not an anonymous caller.
func callerID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	me, ok := auth.CurrentUser(r)
	if !ok {
		webapi.Message(w, http.StatusUnauthorized, "unauthorized")
		return primitive.NilObjectID, false
	}
	id, err := me.ObjectID()
	if err != nil {
		webapi.Message(w, http.StatusUnauthorized, "unauthorized")
		return primitive.NilObjectID, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := chat.ParseID(chi.URLParam(r, param))
	if err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleCreate handles POST /api/groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	var in chat.CreateGroupInput
	if err := webapi.Decode(w, r, &in); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	detail, err := h.Groups.Create(r.Context(), me, in)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: create", err)
		return
	}
	webapi.Respond(w, http.StatusCreated, detail)
}

// ServeMine handles GET /api/groups.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	list, err := h.Groups.ListMine(r.Context(), me)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: list mine", err)
		return
	}
	webapi.Respond(w, http.StatusOK, map[string]any{"groups": list})
}

// ServeDirectory handles GET /api/groups/all.
func (h *Handler) ServeDirectory(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	p := paging.Parse(r)
	page, err := h.Groups.Directory(r.Context(),
		r.URL.Query().Get("search"), p.Page, p.Limit, r.URL.Query().Get("sort"))
	if err != nil {
		webapi.Fail(w, h.Log, "groups: directory", err)
		return
	}
	webapi.Respond(w, http.StatusOK, page)
}

// ServeDetail handles GET /api/groups/{id}.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.Groups.Detail(r.Context(), me, groupID)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: detail", err)
		return
	}
	webapi.Respond(w, http.StatusOK, detail)
}

// HandleUpdate handles PUT /api/groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in chat.UpdateGroupInput
	if err := webapi.Decode(w, r, &in); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	detail, err := h.Groups.Update(r.Context(), me, groupID, in)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: update", err)
		return
	}
	webapi.Respond(w, http.StatusOK, detail)
}

// HandleDelete handles DELETE /api/groups/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Groups.Delete(r.Context(), me, groupID); err != nil {
		webapi.Fail(w, h.Log, "groups: delete", err)
		return
	}
	webapi.Message(w, http.StatusOK, "group deleted")
}

// HandleJoin handles POST /api/groups/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.Groups.Join(r.Context(), me, groupID)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: join", err)
		return
	}
	webapi.Respond(w, http.StatusOK, detail)
}

// HandleLeave handles POST /api/groups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Groups.Leave(r.Context(), me, groupID); err != nil {
		webapi.Fail(w, h.Log, "groups: leave", err)
		return
	}
	webapi.Message(w, http.StatusOK, "left group")
}

type addMembersRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// HandleAddMembers handles POST /api/groups/{id}/members.
func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req addMembersRequest
	if err := webapi.Decode(w, r, &req); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	detail, err := h.Groups.AddMembers(r.Context(), me, groupID, req.MemberIDs)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: add members", err)
		return
	}
	webapi.Respond(w, http.StatusOK, detail)
}

// HandleRemoveMember handles DELETE /api/groups/{id}/members/{userID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.Groups.RemoveMember(r.Context(), me, groupID, targetID); err != nil {
		webapi.Fail(w, h.Log, "groups: remove member", err)
		return
	}
	webapi.Message(w, http.StatusOK, "member removed")
}

type adminRequest struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
}

// HandleAdmins handles PUT /api/groups/{id}/admins with an explicit
// promote/demote action.
func (h *Handler) HandleAdmins(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req adminRequest
	if err := webapi.Decode(w, r, &req); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	targetID, err := chat.ParseID(req.UserID)
	if err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid user id")
		return
	}

	switch req.Action {
	case "promote":
		err = h.Groups.Promote(r.Context(), me, groupID, targetID)
	case "demote":
		err = h.Groups.Demote(r.Context(), me, groupID, targetID)
	default:
		webapi.Message(w, http.StatusBadRequest, `action must be "promote" or "demote"`)
		return
	}
	if err != nil {
		webapi.Fail(w, h.Log, "groups: "+req.Action, err)
		return
	}
	webapi.Message(w, http.StatusOK, "admins updated")
}

type memberRow struct {
	chat.UserSummary
	IsOnline bool `json:"is_online"`
}

// ServeMembers handles GET /api/groups/{id}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	members, err := h.Groups.Members(r.Context(), me, groupID)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: members", err)
		return
	}

	online := make(map[string]bool, 8)
	for _, id := range h.Online.Online() {
		online[id] = true
	}
	rows := make([]memberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, memberRow{UserSummary: m, IsOnline: online[m.ID]})
	}
	webapi.Respond(w, http.StatusOK, map[string]any{"members": rows})
}

// ServeMessages handles GET /api/groups/{id}/messages.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.Messages.GroupHistory(r.Context(), me, groupID)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: history", err)
		return
	}
	webapi.Respond(w, http.StatusOK, map[string]any{"messages": history})
}

// HandleSendMessage handles POST /api/groups/{id}/messages.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in chat.SendGroupInput
	if err := webapi.Decode(w, r, &in); err != nil {
		webapi.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.Messages.SendGroup(r.Context(), me, groupID, in)
	if err != nil {
		webapi.Fail(w, h.Log, "groups: send", err)
		return
	}
	webapi.Respond(w, http.StatusCreated, view)
}

// HandleMarkRead handles POST /api/groups/{id}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	me, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Messages.MarkRead(r.Context(), me, groupID); err != nil {
		webapi.Fail(w, h.Log, "groups: mark read", err)
		return
	}
	webapi.Message(w, http.StatusOK, "marked read")
}
