package groupstore_test

import (
	"testing"

	groupstore "github.com/dalemusser/chathub/internal/app/store/groups"
	"github.com/dalemusser/chathub/internal/domain/models"
	"github.com/dalemusser/chathub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx := testutil.TestContext(t)

	creator := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Group{
		Name:      "Weekend Hikers",
		Members:   []primitive.ObjectID{creator},
		Admins:    []primitive.ObjectID{creator},
		CreatedBy: creator,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_MemberMutations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	creator := primitive.NewObjectID()
	other := primitive.NewObjectID()
	g := fixtures.CreateGroup(ctx, "Core", creator)

	// Adding twice leaves one copy.
	if err := store.AddMembers(ctx, g.ID, []primitive.ObjectID{other}); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if err := store.AddMembers(ctx, g.ID, []primitive.ObjectID{other}); err != nil {
		t.Fatalf("second AddMembers failed: %v", err)
	}
	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("members after duplicate add: %d, want 2", len(got.Members))
	}

	// Promote, then removal clears both sets.
	if err := store.PromoteAdmin(ctx, g.ID, other); err != nil {
		t.Fatalf("PromoteAdmin failed: %v", err)
	}
	if err := store.RemoveMember(ctx, g.ID, other); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	got, _ = store.GetByID(ctx, g.ID)
	if got.HasMember(other) || got.HasAdmin(other) {
		t.Errorf("removed user still present: members=%v admins=%v", got.Members, got.Admins)
	}
}

func TestStore_TransferOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	creator := primitive.NewObjectID()
	heir := primitive.NewObjectID()
	g := fixtures.CreateGroup(ctx, "Core", creator, heir)

	if err := store.TransferOwnership(ctx, g.ID, heir, []primitive.ObjectID{heir}); err != nil {
		t.Fatalf("TransferOwnership failed: %v", err)
	}
	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CreatedBy != heir {
		t.Errorf("created_by: got %s, want %s", got.CreatedBy.Hex(), heir.Hex())
	}
	if len(got.Admins) != 1 || got.Admins[0] != heir {
		t.Errorf("admins: got %v", got.Admins)
	}
}

func TestStore_Directory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	creator := primitive.NewObjectID()
	fixtures.CreateGroup(ctx, "Alpha Club", creator)
	fixtures.CreateGroup(ctx, "beta lounge", creator)
	fixtures.CreateGroup(ctx, "Gamma Den", creator)

	// Name sort is case-insensitive via the fold mirror.
	groups, total, err := store.Directory(ctx, "", 1, 10, "name")
	if err != nil {
		t.Fatalf("Directory failed: %v", err)
	}
	if total != 3 || len(groups) != 3 {
		t.Fatalf("got %d/%d groups, want 3/3", len(groups), total)
	}
	if groups[0].Name != "Alpha Club" || groups[1].Name != "beta lounge" {
		t.Errorf("name order wrong: %q, %q", groups[0].Name, groups[1].Name)
	}

	// Search narrows, total reflects the filter, paging clamps the slice.
	groups, total, err = store.Directory(ctx, "BETA", 1, 10, "name")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || len(groups) != 1 || groups[0].Name != "beta lounge" {
		t.Errorf("search: got %v (total %d)", groups, total)
	}

	groups, total, err = store.Directory(ctx, "", 2, 2, "name")
	if err != nil {
		t.Fatalf("paging failed: %v", err)
	}
	if total != 3 || len(groups) != 1 {
		t.Errorf("page 2 of 2: got %d rows (total %d)", len(groups), total)
	}
}

func TestStore_SetLastMessageBumpsOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	member := primitive.NewObjectID()
	first := fixtures.CreateGroup(ctx, "First", member)
	second := fixtures.CreateGroup(ctx, "Second", member)

	msgID := primitive.NewObjectID()
	if err := store.SetLastMessage(ctx, first.ID, msgID); err != nil {
		t.Fatalf("SetLastMessage failed: %v", err)
	}

	list, err := store.ListByMember(ctx, member)
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID {
		t.Errorf("expected %s on top, got %v", first.ID.Hex(), list)
	}
	if list[0].LastMessageID == nil || *list[0].LastMessageID != msgID {
		t.Errorf("last_message_id not set: %v", list[0].LastMessageID)
	}
	if list[1].ID != second.ID {
		t.Errorf("expected %s below, got %s", second.ID.Hex(), list[1].ID.Hex())
	}
}
