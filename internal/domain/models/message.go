// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a chat message document. Exactly one of ReceiverID (direct
// message) or GroupID (group message) is set; the stores reject any other
// shape. A message carries text, an image URI, or both, and is immutable
// after insert except for appended read receipts.
type Message struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	SenderID   primitive.ObjectID  `bson:"sender_id" json:"sender_id"`
	ReceiverID *primitive.ObjectID `bson:"receiver_id,omitempty" json:"receiver_id,omitempty"`
	GroupID    *primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`

	Text  string `bson:"text,omitempty" json:"text,omitempty"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`

	// ReadBy tracks per-user read receipts for group messages. The sender is
	// recorded at insert time.
	ReadBy []ReadReceipt `bson:"read_by,omitempty" json:"read_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ReadReceipt records that a user read a group message.
type ReadReceipt struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	ReadAt time.Time          `bson:"read_at" json:"read_at"`
}

// IsDirect reports whether the message is addressed to a single receiver.
func (m *Message) IsDirect() bool { return m.ReceiverID != nil }

// IsGroup reports whether the message is addressed to a group.
func (m *Message) IsGroup() bool { return m.GroupID != nil }
