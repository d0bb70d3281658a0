// internal/app/chat/messages.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	activitystore "github.com/dalemusser/chathub/internal/app/store/activity"
	groupstore "github.com/dalemusser/chathub/internal/app/store/groups"
	messagestore "github.com/dalemusser/chathub/internal/app/store/messages"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chathub/internal/app/system/limits"
	"github.com/dalemusser/chathub/internal/app/system/media"
	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MessageService routes direct and group messages: validate, persist, then
// fan out to live recipients. Persistence always wins; a recipient who is
// offline just picks the message up from history.
type MessageService struct {
	messages *messagestore.Store
	groups   *groupstore.Store
	users    *userstore.Store
	activity *activitystore.Store
	uploader media.Uploader
	notify   Notifier
	log      *zap.Logger
}

func NewMessageService(
	messages *messagestore.Store,
	groups *groupstore.Store,
	users *userstore.Store,
	activity *activitystore.Store,
	uploader media.Uploader,
	notify Notifier,
	log *zap.Logger,
) *MessageService {
	if notify == nil {
		notify = NopNotifier{}
	}
	if uploader == nil {
		uploader = media.PassthroughUploader{}
	}
	return &MessageService{
		messages: messages,
		groups:   groups,
		users:    users,
		activity: activity,
		uploader: uploader,
		notify:   notify,
		log:      log,
	}
}

type SendDirectInput struct {
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
	Image      string `json:"image"`
}

// SendDirect delivers a one-to-one message.
func (s *MessageService) SendDirect(ctx context.Context, senderID primitive.ObjectID, in SendDirectInput) (MessageView, error) {
	receiverID, err := ParseID(in.ReceiverID)
	if err != nil {
		return MessageView{}, ValidationError("invalid receiver id")
	}
	if receiverID == senderID {
		return MessageView{}, ValidationError("you cannot message yourself")
	}

	text, image, err := s.cleanContent(ctx, in.Text, in.Image)
	if err != nil {
		return MessageView{}, err
	}

	ok, err := s.users.Exists(ctx, receiverID)
	if err != nil {
		return MessageView{}, UpstreamError("could not validate receiver", err)
	}
	if !ok {
		return MessageView{}, NotFoundError("receiver not found")
	}

	m, err := s.messages.Insert(ctx, models.Message{
		SenderID:   senderID,
		ReceiverID: &receiverID,
		Text:       text,
		Image:      image,
	})
	if err != nil {
		return MessageView{}, UpstreamError("could not send message", err)
	}

	view := NewMessageView(m)
	s.notify.NotifyUser(receiverID.Hex(), EventNewMessage, view)
	return view, nil
}

type SendGroupInput struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// SendGroup delivers a message to a group the sender belongs to. The group's
// last-message pointer is bumped so member listings resort, and every other
// member's live connection gets the message.
func (s *MessageService) SendGroup(ctx context.Context, senderID, groupID primitive.ObjectID, in SendGroupInput) (MessageView, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err == mongo.ErrNoDocuments {
		return MessageView{}, NotFoundError("group not found")
	}
	if err != nil {
		return MessageView{}, UpstreamError("could not load group", err)
	}
	if err := canView(&g, senderID); err != nil {
		return MessageView{}, err
	}

	text, image, err := s.cleanContent(ctx, in.Text, in.Image)
	if err != nil {
		return MessageView{}, err
	}

	m, err := s.messages.Insert(ctx, models.Message{
		SenderID: senderID,
		GroupID:  &groupID,
		Text:     text,
		Image:    image,
	})
	if err != nil {
		return MessageView{}, UpstreamError("could not send message", err)
	}
	if err := s.groups.SetLastMessage(ctx, groupID, m.ID); err != nil {
		s.log.Warn("set last message failed",
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
	}

	view := NewMessageView(m)
	s.notify.NotifyUsers(hexIDsExcept(g.Members, senderID), EventNewGroupMessage, map[string]any{
		"group_id": groupID.Hex(),
		"message":  view,
	})
	return view, nil
}

// DirectHistory returns the full conversation with a peer, oldest first.
func (s *MessageService) DirectHistory(ctx context.Context, userID, peerID primitive.ObjectID) ([]MessageView, error) {
	ok, err := s.users.Exists(ctx, peerID)
	if err != nil {
		return nil, UpstreamError("could not validate user", err)
	}
	if !ok {
		return nil, NotFoundError("user not found")
	}
	msgs, err := s.messages.ListDirect(ctx, userID, peerID)
	if err != nil {
		return nil, UpstreamError("could not load messages", err)
	}
	return NewMessageViews(msgs), nil
}

// GroupHistory returns a group's messages, oldest first. Members only.
func (s *MessageService) GroupHistory(ctx context.Context, userID, groupID primitive.ObjectID) ([]MessageView, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err == mongo.ErrNoDocuments {
		return nil, NotFoundError("group not found")
	}
	if err != nil {
		return nil, UpstreamError("could not load group", err)
	}
	if err := canView(&g, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, UpstreamError("could not load messages", err)
	}
	return NewMessageViews(msgs), nil
}

// MarkRead advances the caller's last-seen watermark for a group and stamps
// read receipts onto the messages they had not seen. Other members get a
// message_read event so read indicators update live.
func (s *MessageService) MarkRead(ctx context.Context, userID, groupID primitive.ObjectID) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err == mongo.ErrNoDocuments {
		return NotFoundError("group not found")
	}
	if err != nil {
		return UpstreamError("could not load group", err)
	}
	if err := canView(&g, userID); err != nil {
		return err
	}

	if err := s.activity.Touch(ctx, groupID, userID); err != nil {
		return UpstreamError("could not update activity", err)
	}
	n, err := s.messages.AppendReadReceipts(ctx, groupID, userID)
	if err != nil {
		return UpstreamError("could not update read receipts", err)
	}
	if n > 0 {
		s.notify.NotifyUsers(hexIDsExcept(g.Members, userID), EventMessageRead, map[string]any{
			"group_id": groupID.Hex(),
			"user_id":  userID.Hex(),
		})
	}
	return nil
}

// cleanContent validates and sanitizes the text/image pair. At least one
// must be present.
func (s *MessageService) cleanContent(ctx context.Context, text, image string) (string, string, error) {
	text = htmlsanitize.PlainText(strings.TrimSpace(text))
	image = strings.TrimSpace(image)
	if text == "" && image == "" {
		return "", "", ValidationError("message must have text or an image")
	}
	if len(text) > limits.MaxMessageTextLen {
		return "", "", ValidationError(fmt.Sprintf("message cannot exceed %d characters", limits.MaxMessageTextLen))
	}
	if image != "" {
		uploaded, err := s.uploader.Upload(ctx, image)
		if err != nil {
			if errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrBadFormat) {
				return "", "", ValidationError(err.Error())
			}
			return "", "", UpstreamError("could not store image", err)
		}
		image = uploaded
	}
	return text, image, nil
}
