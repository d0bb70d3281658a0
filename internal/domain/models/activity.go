// internal/domain/models/activity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberActivity is the per-(group, user) last-seen marker used to derive
// unread counts. One document per pair, enforced by a unique compound index
// on (group_id, user_id). Created when the user becomes a member, updated on
// mark-read, deleted when the user leaves or the group is deleted.
type MemberActivity struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	LastSeen time.Time          `bson:"last_seen" json:"last_seen"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
