// internal/app/chat/views.go
package chat

import (
	"time"

	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserSummary is the public slice of a user shown in member lists and
// conversation sidebars.
type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}

func NewUserSummary(u models.User) UserSummary {
	return UserSummary{
		ID:       u.ID.Hex(),
		FullName: u.FullName,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}

// GroupSummary is a group row in listings. UnreadCount is only populated on
// the caller's own group list.
type GroupSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	CreatedBy     string    `json:"created_by"`
	MemberCount   int       `json:"member_count"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	UnreadCount   int64     `json:"unread_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewGroupSummary(g models.Group) GroupSummary {
	s := GroupSummary{
		ID:          g.ID.Hex(),
		Name:        g.Name,
		Description: g.Description,
		Avatar:      g.Avatar,
		CreatedBy:   g.CreatedBy.Hex(),
		MemberCount: len(g.Members),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if g.LastMessageID != nil {
		s.LastMessageID = g.LastMessageID.Hex()
	}
	return s
}

// GroupDetail is the full group view with populated members.
type GroupDetail struct {
	GroupSummary
	Members []UserSummary `json:"members"`
	Admins  []string      `json:"admins"`
}

// DirectoryPage is one page of the public group directory.
type DirectoryPage struct {
	Groups []GroupSummary `json:"groups"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// MessageView is a message as clients see it, both in history responses and
// realtime events.
type MessageView struct {
	ID         string      `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id,omitempty"`
	GroupID    string      `json:"group_id,omitempty"`
	Text       string      `json:"text,omitempty"`
	Image      string      `json:"image,omitempty"`
	ReadBy     []ReadEntry `json:"read_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type ReadEntry struct {
	UserID string    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

func NewMessageView(m models.Message) MessageView {
	v := MessageView{
		ID:        m.ID.Hex(),
		SenderID:  m.SenderID.Hex(),
		Text:      m.Text,
		Image:     m.Image,
		CreatedAt: m.CreatedAt,
	}
	if m.ReceiverID != nil {
		v.ReceiverID = m.ReceiverID.Hex()
	}
	if m.GroupID != nil {
		v.GroupID = m.GroupID.Hex()
	}
	for _, r := range m.ReadBy {
		v.ReadBy = append(v.ReadBy, ReadEntry{UserID: r.UserID.Hex(), ReadAt: r.ReadAt})
	}
	return v
}

func NewMessageViews(msgs []models.Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, NewMessageView(m))
	}
	return views
}

// ParseID converts a client-supplied hex id, mapping garbage to a validation
// failure instead of an opaque driver error.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ValidationError("invalid id")
	}
	return id, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

// hexIDsExcept returns the hex ids of everyone but skip. The usual fan-out
// set: all members except the actor.
func hexIDsExcept(ids []primitive.ObjectID, skip primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id.Hex())
		}
	}
	return out
}
