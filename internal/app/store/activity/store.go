// internal/app/store/activity/store.go
package activitystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chathub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateActivity = errors.New("activity record already exists for this group and user")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_member_activity")}
}

// Init creates last-seen records for the given members with last_seen = now.
// Existing (group, user) pairs are tolerated: inserts run unordered and
// duplicate-key failures are counted, not surfaced, so re-adding a member
// who already has a record is harmless.
func (s *Store) Init(ctx context.Context, groupID primitive.ObjectID, userIDs []primitive.ObjectID) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(userIDs))
	for _, uid := range userIDs {
		docs = append(docs, models.MemberActivity{
			ID:        primitive.NewObjectID(),
			GroupID:   groupID,
			UserID:    uid,
			LastSeen:  now,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	opts := options.InsertMany().SetOrdered(false)
	_, err := s.c.InsertMany(ctx, docs, opts)
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, we := range bulkErr.WriteErrors {
				if we.Code != 11000 {
					return err
				}
			}
			return nil
		}
		if wafflemongo.IsDup(err) {
			return nil
		}
		return err
	}
	return nil
}

// Get loads the activity record for (group, user). Returns
// mongo.ErrNoDocuments when absent.
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.MemberActivity, error) {
	var a models.MemberActivity
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&a)
	if err != nil {
		return models.MemberActivity{}, err
	}
	return a, nil
}

// Touch upserts last_seen to now for (group, user). Used by mark-read.
func (s *Store) Touch(ctx context.Context, groupID, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{
			"$set": bson.M{"last_seen": now, "updated_at": now},
			"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"created_at": now,
			},
		},
		opts,
	)
	return err
}

// Delete removes the activity record for (group, user).
func (s *Store) Delete(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return err
}

// DeleteByGroup removes all activity records for a group. Returns the number
// of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
