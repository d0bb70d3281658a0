// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrInvalidAddress rejects messages that don't have exactly one of
// receiver_id or group_id set.
var ErrInvalidAddress = errors.New("message must have exactly one of receiver or group")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Insert persists a message after enforcing the address invariant.
func (s *Store) Insert(ctx context.Context, m models.Message) (models.Message, error) {
	if (m.ReceiverID == nil) == (m.GroupID == nil) {
		return models.Message{}, ErrInvalidAddress
	}
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListDirect returns the conversation between two users (either direction),
// oldest first.
func (s *Store) ListDirect(ctx context.Context, a, b primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{"$or": []bson.M{
		{"sender_id": a, "receiver_id": b},
		{"sender_id": b, "receiver_id": a},
	}}
	return s.list(ctx, filter)
}

// ListByGroup returns all messages in a group, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Message, error) {
	return s.list(ctx, bson.M{"group_id": groupID})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountUnread counts group messages authored by someone else after the
// user's last-seen time.
func (s *Store) CountUnread(ctx context.Context, groupID, userID primitive.ObjectID, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"group_id":   groupID,
		"sender_id":  bson.M{"$ne": userID},
		"created_at": bson.M{"$gt": since},
	})
}

// AppendReadReceipts adds a read receipt for the user to every group message
// the user has not already marked. Returns the number of messages updated.
func (s *Store) AppendReadReceipts(ctx context.Context, groupID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"group_id":        groupID,
			"read_by.user_id": bson.M{"$ne": userID},
		},
		bson.M{
			"$push": bson.M{"read_by": models.ReadReceipt{
				UserID: userID,
				ReadAt: time.Now().UTC(),
			}},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByGroup removes every message owned by a group. Returns the number
// of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
