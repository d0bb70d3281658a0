package testutil

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/chathub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given name and email.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Password:   "$2a$10$testtesttesttesttesttesttesttesttesttesttesttesttest12",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGroup creates a test group. The first member is the creator and
// sole admin.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, memberIDs ...primitive.ObjectID) models.Group {
	f.t.Helper()

	if len(memberIDs) == 0 {
		f.t.Fatal("CreateGroup needs at least the creator")
	}
	now := time.Now().UTC()
	group := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test group description",
		Members:     memberIDs,
		Admins:      []primitive.ObjectID{memberIDs[0]},
		CreatedBy:   memberIDs[0],
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("groups").InsertOne(ctx, group); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// Message timestamps are spaced out so created_at ordering stays
// deterministic even though BSON truncates to milliseconds. The clock runs
// a minute in the past so fixture messages never postdate watermarks the
// code under test stamps with time.Now().
var (
	msgBase  = time.Now().UTC().Add(-time.Minute)
	msgClock atomic.Int64
)

func nextMessageTime() time.Time {
	return msgBase.Add(time.Duration(msgClock.Add(1)) * 2 * time.Millisecond)
}

// CreateDirectMessage inserts a direct message between two users.
func (f *Fixtures) CreateDirectMessage(ctx context.Context, senderID, receiverID primitive.ObjectID, textBody string) models.Message {
	f.t.Helper()

	msg := models.Message{
		ID:         primitive.NewObjectID(),
		SenderID:   senderID,
		ReceiverID: &receiverID,
		Text:       textBody,
		CreatedAt:  nextMessageTime(),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, msg); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}

// CreateGroupMessage inserts a group message.
func (f *Fixtures) CreateGroupMessage(ctx context.Context, senderID, groupID primitive.ObjectID, textBody string) models.Message {
	f.t.Helper()

	msg := models.Message{
		ID:        primitive.NewObjectID(),
		SenderID:  senderID,
		GroupID:   &groupID,
		Text:      textBody,
		CreatedAt: nextMessageTime(),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, msg); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}

// CreateActivity inserts a last-seen watermark for (group, user).
func (f *Fixtures) CreateActivity(ctx context.Context, groupID, userID primitive.ObjectID, lastSeen time.Time) models.MemberActivity {
	f.t.Helper()

	now := time.Now().UTC()
	act := models.MemberActivity{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		LastSeen:  lastSeen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("group_member_activity").InsertOne(ctx, act); err != nil {
		f.t.Fatalf("failed to create test activity: %v", err)
	}
	return act
}
