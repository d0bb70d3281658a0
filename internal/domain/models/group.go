// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a chat group document.
//
// Invariants maintained by the chat services:
//   - CreatedBy is always present in Members and in Admins.
//   - Admins is a subset of Members.
//   - Members holds no duplicates and at most limits.MaxGroupMembers ids.
//
// Member and admin lists are embedded on the group (not a join collection)
// so membership checks are a single document read and set mutations can use
// $addToSet/$pull atomically.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Avatar      string             `bson:"avatar" json:"avatar"`

	Members   []primitive.ObjectID `bson:"members" json:"members"`
	Admins    []primitive.ObjectID `bson:"admins" json:"admins"`
	CreatedBy primitive.ObjectID   `bson:"created_by" json:"created_by"`

	// LastMessageID points at the most recent message in the group, if any.
	LastMessageID *primitive.ObjectID `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether id is in the member set.
func (g *Group) HasMember(id primitive.ObjectID) bool {
	return containsID(g.Members, id)
}

// HasAdmin reports whether id is in the admin set.
func (g *Group) HasAdmin(id primitive.ObjectID) bool {
	return containsID(g.Admins, id)
}

// IsCreator reports whether id is the group creator.
func (g *Group) IsCreator(id primitive.ObjectID) bool {
	return g.CreatedBy == id
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
