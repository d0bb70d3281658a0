// internal/app/realtime/hub/dispatch.go
package hub

import (
	"context"
	"encoding/json"

	"github.com/dalemusser/chathub/internal/app/chat"
	"github.com/dalemusser/chathub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type opHandler func(ctx context.Context, c *Client, data json.RawMessage) (any, error)

func (h *Hub) opTable() map[string]opHandler {
	return map[string]opHandler{
		"ping":                 h.opPing,
		"send_message":         h.opSendMessage,
		"send_group_message":   h.opSendGroupMessage,
		"typing_group":         h.opTypingGroup,
		"typing_direct":        h.opTypingDirect,
		"mark_read_group":      h.opMarkReadGroup,
		"group_online_members": h.opGroupOnlineMembers,
	}
}

// dispatch runs one request frame to completion and enqueues the response.
// A handler panic fails the one request, not the connection.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		c.Enqueue(encodeError("", chat.ValidationError("malformed frame")))
		return
	}
	handler, ok := h.ops[req.Op]
	if !ok {
		c.Enqueue(encodeError(req.ID, chat.ValidationError("unknown op: "+req.Op)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("op handler panicked",
				zap.String("op", req.Op),
				zap.String("user_id", c.userID),
				zap.Any("panic", r))
			c.Enqueue(encodeError(req.ID, chat.UpstreamError("internal server error", nil)))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	data, err := handler(ctx, c, req.Data)
	if err != nil {
		if chat.KindOf(err) == chat.KindUpstream {
			h.log.Error("op failed",
				zap.String("op", req.Op),
				zap.String("user_id", c.userID),
				zap.Error(err))
		}
		c.Enqueue(encodeError(req.ID, err))
		return
	}
	c.Enqueue(encodeResult(req.ID, data))
}

func (h *Hub) opPing(context.Context, *Client, json.RawMessage) (any, error) {
	return map[string]any{"pong": true}, nil
}

func (h *Hub) opSendMessage(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var in chat.SendDirectInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, chat.ValidationError("malformed send_message data")
	}
	senderID, err := chat.ParseID(c.userID)
	if err != nil {
		return nil, err
	}
	return h.messages.SendDirect(ctx, senderID, in)
}

func (h *Hub) opSendGroupMessage(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
		Text    string `json:"text"`
		Image   string `json:"image"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, chat.ValidationError("malformed send_group_message data")
	}
	senderID, err := chat.ParseID(c.userID)
	if err != nil {
		return nil, err
	}
	groupID, err := chat.ParseID(in.GroupID)
	if err != nil {
		return nil, chat.ValidationError("invalid group id")
	}
	return h.messages.SendGroup(ctx, senderID, groupID, chat.SendGroupInput{Text: in.Text, Image: in.Image})
}

func (h *Hub) opTypingGroup(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
		Typing  bool   `json:"typing"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, chat.ValidationError("malformed typing_group data")
	}
	userID, err := chat.ParseID(c.userID)
	if err != nil {
		return nil, err
	}
	groupID, err := chat.ParseID(in.GroupID)
	if err != nil {
		return nil, chat.ValidationError("invalid group id")
	}
	g, err := h.groups.EnsureMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	var others []string
	for _, id := range g.Members {
		if id != userID {
			others = append(others, id.Hex())
		}
	}
	payload := map[string]any{"group_id": in.GroupID, "user_id": c.userID, "name": c.name}

	if in.Typing {
		if h.typing.Start(in.GroupID, c.userID, c.name) {
			h.NotifyUsers(others, chat.EventTypingGroup, payload)
		}
	} else {
		if h.typing.Stop(in.GroupID, c.userID) {
			h.NotifyUsers(others, chat.EventStoppedTypingGroup, payload)
		}
	}
	return map[string]any{"typing": in.Typing}, nil
}

func (h *Hub) opTypingDirect(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var in struct {
		ReceiverID string `json:"receiver_id"`
		Typing     bool   `json:"typing"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, chat.ValidationError("malformed typing_direct data")
	}
	if _, err := chat.ParseID(in.ReceiverID); err != nil {
		return nil, chat.ValidationError("invalid receiver id")
	}
	if in.ReceiverID == c.userID {
		return nil, chat.ValidationError("you cannot type at yourself")
	}

	channel := directChannelPrefix + in.ReceiverID
	payload := map[string]any{"user_id": c.userID, "name": c.name}

	if in.Typing {
		if h.typing.Start(channel, c.userID, c.name) {
			h.NotifyUser(in.ReceiverID, chat.EventTypingDirect, payload)
		}
	} else {
		if h.typing.Stop(channel, c.userID) {
			h.NotifyUser(in.ReceiverID, chat.EventStoppedTypingDirect, payload)
		}
	}
	return map[string]any{"typing": in.Typing}, nil
}

func (h *Hub) opMarkReadGroup(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, chat.ValidationError("malformed mark_read_group data")
	}
	userID, err := chat.ParseID(c.userID)
	if err != nil {
		return nil, err
	}
	groupID, err := chat.ParseID(in.GroupID)
	if err != nil {
		return nil, chat.ValidationError("invalid group id")
	}
	if err := h.messages.MarkRead(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return map[string]any{"group_id": in.GroupID}, nil
}

func (h *Hub) opGroupOnlineMembers(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, chat.ValidationError("malformed group_online_members data")
	}
	userID, err := chat.ParseID(c.userID)
	if err != nil {
		return nil, err
	}
	groupID, err := chat.ParseID(in.GroupID)
	if err != nil {
		return nil, chat.ValidationError("invalid group id")
	}
	g, err := h.groups.EnsureMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	members := make([]string, 0, len(g.Members))
	for _, id := range g.Members {
		members = append(members, id.Hex())
	}
	return map[string]any{
		"group_id": in.GroupID,
		"online":   h.presence.OnlineSubset(members),
	}, nil
}
