// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/chathub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// GetByID loads a group by ObjectID. Returns mongo.ErrNoDocuments when the
// group does not exist (callers map this to a not-found failure).
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts a new group. The caller is responsible for the membership
// invariants (creator in members/admins, no duplicates); Create only fills
// ids, fold mirrors, and timestamps.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// ListByMember returns the groups the user belongs to, most recently updated
// first.
func (s *Store) ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Directory lists groups for the public directory with optional name search,
// offset pagination, and a sort order of "name" or "recent".
func (s *Store) Directory(ctx context.Context, search string, page, limit int, sort string) ([]models.Group, int64, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(search); q != "" {
		filter["name_ci"] = bson.M{"$regex": primitive.Regex{Pattern: regexQuote(text.Fold(q))}}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	order := bson.D{{Key: "name_ci", Value: 1}}
	if sort == "recent" {
		order = bson.D{{Key: "created_at", Value: -1}}
	}
	opts := options.Find().
		SetSort(order).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// AddMembers appends the given ids to the member set. $addToSet keeps the
// set free of duplicates even under concurrent adds.
func (s *Store) AddMembers(ctx context.Context, id primitive.ObjectID, memberIDs []primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": memberIDs}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveMember pulls the user out of both the member and admin sets in one
// atomic update.
func (s *Store) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"members": userID, "admins": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// PromoteAdmin adds the user to the admin set.
func (s *Store) PromoteAdmin(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"admins": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// DemoteAdmin removes the user from the admin set (membership is untouched).
func (s *Store) DemoteAdmin(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"admins": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// TransferOwnership reassigns the creator and replaces the admin set. Used
// when the creator leaves and ownership passes to another member.
func (s *Store) TransferOwnership(ctx context.Context, id, newCreator primitive.ObjectID, admins []primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"created_by": newCreator,
			"admins":     admins,
			"updated_at": time.Now().UTC(),
		},
	})
	return err
}

// UpdateInfo patches name, description, and avatar. Empty name means "keep";
// description and avatar are only written when a new value is supplied.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc, avatar *string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil && strings.TrimSpace(*name) != "" {
		set["name"] = *name
		set["name_ci"] = text.Fold(*name)
	}
	if desc != nil {
		set["description"] = *desc
	}
	if avatar != nil {
		set["avatar"] = *avatar
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// SetLastMessage points the group at its most recent message and bumps
// updated_at so member listings sort the group to the top.
func (s *Store) SetLastMessage(ctx context.Context, id, messageID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"last_message_id": messageID,
			"updated_at":      time.Now().UTC(),
		},
	})
	return err
}

// Delete removes a group by ID. Returns the number of documents deleted
// (0 or 1). Cascades (messages, activity) are the coordinator's job.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Exists reports whether a group with the given id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// regexQuote escapes regex metacharacters so a search string is matched
// literally.
func regexQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
