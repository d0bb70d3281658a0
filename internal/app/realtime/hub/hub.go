// internal/app/realtime/hub/hub.go
package hub

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/chathub/internal/app/chat"
	"github.com/dalemusser/chathub/internal/app/realtime/presence"
	"github.com/dalemusser/chathub/internal/app/realtime/typing"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// directChannel namespaces direct-typing indicators in the coordinator so a
// peer's user id can never collide with a group id.
const directChannelPrefix = "dm:"

// Hub owns the live connections. It is both the entry point for socket ops
// and the chat services' Notifier, so REST-triggered changes reach sockets
// through the same path as socket-triggered ones.
type Hub struct {
	presence *presence.Registry
	typing   *typing.Coordinator
	groups   *chat.GroupService
	messages *chat.MessageService
	ops      map[string]opHandler
	log      *zap.Logger
}

func New(groups *chat.GroupService, messages *chat.MessageService, quiescence time.Duration, log *zap.Logger) *Hub {
	h := &Hub{
		presence: presence.NewRegistry(),
		groups:   groups,
		messages: messages,
		log:      log,
	}
	h.typing = typing.New(quiescence, h.typingExpired)
	h.ops = h.opTable()
	return h
}

// Attach takes ownership of an upgraded connection for a signed-in user and
// starts its pumps. A prior connection for the same user is displaced and
// closed; the newest connection wins.
func (h *Hub) Attach(userID, name string, conn *websocket.Conn) {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		name:   name,
		connID: uuid.NewString(),
		log:    h.log,
	}

	// The displaced connection's read pump may still be mid-dispatch, so the
	// channel close goes through the client's own once-guard.
	if displaced := h.presence.Register(userID, c); displaced != nil {
		if old, ok := displaced.(*Client); ok {
			old.closeSend()
		}
	}
	h.log.Info("websocket connected",
		zap.String("user_id", userID),
		zap.String("conn_id", c.connID))
	h.broadcastOnline()

	go c.writePump()
	go c.readPump()
}

// detach is the read pump's teardown. Typing indicators the user left open
// are swept so the rest of the group sees them stop.
func (h *Hub) detach(c *Client) {
	if !h.presence.Unregister(c.userID, c) {
		// Displaced connection; the registry already points elsewhere.
		return
	}
	c.closeSend()

	for _, channel := range h.typing.SweepUser(c.userID) {
		h.typingExpired(channel, c.userID, c.name)
	}

	h.log.Info("websocket disconnected",
		zap.String("user_id", c.userID),
		zap.String("conn_id", c.connID))
	h.broadcastOnline()
}

// NotifyUser implements chat.Notifier. Events to offline users are dropped;
// a full send buffer counts as offline.
func (h *Hub) NotifyUser(userID string, event string, data any) {
	c, ok := h.presence.Lookup(userID)
	if !ok {
		return
	}
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.Error("event encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	if !c.Enqueue(frame) {
		h.log.Warn("dropping event for slow consumer",
			zap.String("user_id", userID),
			zap.String("event", event))
	}
}

// NotifyUsers implements chat.Notifier.
func (h *Hub) NotifyUsers(userIDs []string, event string, data any) {
	if len(userIDs) == 0 {
		return
	}
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.Error("event encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	for _, id := range userIDs {
		c, ok := h.presence.Lookup(id)
		if !ok {
			continue
		}
		if !c.Enqueue(frame) {
			h.log.Warn("dropping event for slow consumer",
				zap.String("user_id", id),
				zap.String("event", event))
		}
	}
}

// Online exposes the current online user ids (for the REST surface).
func (h *Hub) Online() []string {
	return h.presence.Online()
}

func (h *Hub) broadcastOnline() {
	online := h.presence.Online()
	h.NotifyUsers(online, chat.EventOnlineUsers, map[string]any{"user_ids": online})
}

// typingExpired relays a quiescence or disconnect stop to whoever was
// watching the indicator.
func (h *Hub) typingExpired(channel, userID, name string) {
	if peer, ok := strings.CutPrefix(channel, directChannelPrefix); ok {
		h.NotifyUser(peer, chat.EventStoppedTypingDirect, map[string]any{
			"user_id": userID,
			"name":    name,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uid, err := chat.ParseID(userID)
	if err != nil {
		return
	}
	gid, err := chat.ParseID(channel)
	if err != nil {
		return
	}
	g, err := h.groups.Load(ctx, gid)
	if err != nil {
		// Group gone (deleted mid-typing); nothing to tell anyone.
		return
	}
	var others []string
	for _, id := range g.Members {
		if id != uid {
			others = append(others, id.Hex())
		}
	}
	h.NotifyUsers(others, chat.EventStoppedTypingGroup, map[string]any{
		"group_id": channel,
		"user_id":  userID,
		"name":     name,
	})
}
