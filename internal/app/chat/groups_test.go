package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	activitystore "github.com/dalemusser/chathub/internal/app/store/activity"
	groupstore "github.com/dalemusser/chathub/internal/app/store/groups"
	messagestore "github.com/dalemusser/chathub/internal/app/store/messages"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// recNotifier records every event fan-out for assertions.
type recNotifier struct {
	mu     sync.Mutex
	events []recEvent
}

type recEvent struct {
	Users []string
	Event string
	Data  any
}

func (r *recNotifier) NotifyUser(userID, event string, data any) {
	r.NotifyUsers([]string{userID}, event, data)
}

func (r *recNotifier) NotifyUsers(userIDs []string, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recEvent{Users: append([]string(nil), userIDs...), Event: event, Data: data})
}

func (r *recNotifier) byEvent(event string) []recEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type testEnv struct {
	groups   *GroupService
	messages *MessageService
	activity *activitystore.Store
	msgStore *messagestore.Store
	notifier *recNotifier
	fix      *testutil.Fixtures
	ctx      context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	gs := groupstore.New(db)
	us := userstore.New(db)
	ms := messagestore.New(db)
	as := activitystore.New(db)
	notifier := &recNotifier{}
	log := zap.NewNop()

	return &testEnv{
		groups:   NewGroupService(gs, us, ms, as, notifier, log),
		messages: NewMessageService(ms, gs, us, as, nil, notifier, log),
		activity: as,
		msgStore: ms,
		notifier: notifier,
		fix:      testutil.NewFixtures(t, db),
		ctx:      ctx,
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t)

	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	eve := env.fix.CreateUser(env.ctx, "Eve Online", "eve@example.com")

	detail, err := env.groups.Create(env.ctx, ada.ID, CreateGroupInput{
		Name:      "  Project X  ",
		MemberIDs: []string{bob.ID.Hex(), eve.ID.Hex(), ada.ID.Hex(), bob.ID.Hex()},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if detail.Name != "Project X" {
		t.Errorf("name = %q", detail.Name)
	}
	if detail.MemberCount != 3 || len(detail.Members) != 3 {
		t.Errorf("member count = %d / %d, want 3", detail.MemberCount, len(detail.Members))
	}
	if len(detail.Admins) != 1 || detail.Admins[0] != ada.ID.Hex() {
		t.Errorf("admins = %v, want only the creator", detail.Admins)
	}
	if detail.CreatedBy != ada.ID.Hex() {
		t.Errorf("created_by = %q", detail.CreatedBy)
	}

	// Every member has a last-seen watermark.
	gid, _ := ParseID(detail.ID)
	for _, uid := range []primitive.ObjectID{ada.ID, bob.ID, eve.ID} {
		if _, err := env.activity.Get(env.ctx, gid, uid); err != nil {
			t.Errorf("activity missing for %s: %v", uid.Hex(), err)
		}
	}

	// Invitees are told, the creator is not.
	created := env.notifier.byEvent(EventGroupCreated)
	if len(created) != 1 {
		t.Fatalf("group_created events = %d, want 1", len(created))
	}
	if contains(created[0].Users, ada.ID.Hex()) {
		t.Error("creator should not receive group_created")
	}
	if !contains(created[0].Users, bob.ID.Hex()) || !contains(created[0].Users, eve.ID.Hex()) {
		t.Errorf("group_created recipients = %v", created[0].Users)
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")

	if _, err := env.groups.Create(env.ctx, ada.ID, CreateGroupInput{Name: "   "}); KindOf(err) != KindValidation {
		t.Errorf("blank name: got %v", err)
	}

	ghost := primitive.NewObjectID()
	_, err := env.groups.Create(env.ctx, ada.ID, CreateGroupInput{
		Name:      "Ghost Hunters",
		MemberIDs: []string{ghost.Hex()},
	})
	if KindOf(err) != KindValidation {
		t.Errorf("unknown invitee: got %v", err)
	}

	if _, err := env.groups.Create(env.ctx, ada.ID, CreateGroupInput{
		Name:      "Bad IDs",
		MemberIDs: []string{"not-an-id"},
	}); KindOf(err) != KindValidation {
		t.Errorf("bad id: got %v", err)
	}
}

func TestAddMembers(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	eve := env.fix.CreateUser(env.ctx, "Eve Online", "eve@example.com")
	g := env.fix.CreateGroup(env.ctx, "Core", ada.ID, bob.ID)
	env.notifier.reset()

	detail, err := env.groups.AddMembers(env.ctx, ada.ID, g.ID, []string{eve.ID.Hex()})
	if err != nil {
		t.Fatalf("AddMembers: %v", err)
	}
	if detail.MemberCount != 3 {
		t.Errorf("member count = %d, want 3", detail.MemberCount)
	}

	added := env.notifier.byEvent(EventMembersAdded)
	if len(added) != 1 {
		t.Fatalf("members_added events = %d, want 1", len(added))
	}
	if contains(added[0].Users, ada.ID.Hex()) {
		t.Error("actor should not be notified")
	}
	if contains(added[0].Users, eve.ID.Hex()) {
		t.Error("newcomer should get added_to_group, not members_added")
	}
	welcomed := env.notifier.byEvent(EventAddedToGroup)
	if len(welcomed) != 1 || !contains(welcomed[0].Users, eve.ID.Hex()) {
		t.Errorf("added_to_group recipients = %v", welcomed)
	}

	// Everyone already in: conflict.
	if _, err := env.groups.AddMembers(env.ctx, ada.ID, g.ID, []string{eve.ID.Hex()}); KindOf(err) != KindConflict {
		t.Errorf("re-add: got %v", err)
	}

	// Non-admin cannot add.
	if _, err := env.groups.AddMembers(env.ctx, bob.ID, g.ID, []string{primitive.NewObjectID().Hex()}); KindOf(err) != KindForbidden {
		t.Errorf("non-admin add: got %v", err)
	}
}

func TestJoin(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	g := env.fix.CreateGroup(env.ctx, "Open Door", ada.ID)

	if _, err := env.groups.Join(env.ctx, bob.ID, g.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := env.groups.Join(env.ctx, bob.ID, g.ID); KindOf(err) != KindConflict {
		t.Errorf("double join: got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	eve := env.fix.CreateUser(env.ctx, "Eve Online", "eve@example.com")
	g := env.fix.CreateGroup(env.ctx, "Core", ada.ID, bob.ID, eve.ID)
	env.notifier.reset()

	if err := env.groups.RemoveMember(env.ctx, ada.ID, g.ID, bob.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	got, err := env.groups.Load(env.ctx, g.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.HasMember(bob.ID) {
		t.Error("bob still a member")
	}

	evicted := env.notifier.byEvent(EventRemovedFromGroup)
	if len(evicted) != 1 || !contains(evicted[0].Users, bob.ID.Hex()) {
		t.Errorf("removed_from_group events = %+v", evicted)
	}
	others := env.notifier.byEvent(EventMemberRemoved)
	if len(others) != 1 || !contains(others[0].Users, eve.ID.Hex()) || contains(others[0].Users, ada.ID.Hex()) {
		t.Errorf("member_removed events = %+v", others)
	}

	// The creator is immune.
	g2 := env.fix.CreateGroup(env.ctx, "Immune", ada.ID, bob.ID)
	if err := env.groups.RemoveMember(env.ctx, ada.ID, g2.ID, ada.ID); KindOf(err) != KindForbidden {
		t.Errorf("self-remove of creator: got %v", err)
	}
}

func TestPromoteAndDemote(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	g := env.fix.CreateGroup(env.ctx, "Core", ada.ID, bob.ID)

	if err := env.groups.Promote(env.ctx, ada.ID, g.ID, bob.ID); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	got, _ := env.groups.Load(env.ctx, g.ID)
	if !got.HasAdmin(bob.ID) {
		t.Error("bob not an admin after promote")
	}

	if err := env.groups.Promote(env.ctx, ada.ID, g.ID, bob.ID); KindOf(err) != KindConflict {
		t.Errorf("double promote: got %v", err)
	}

	if err := env.groups.Demote(env.ctx, ada.ID, g.ID, bob.ID); err != nil {
		t.Fatalf("Demote: %v", err)
	}
	got, _ = env.groups.Load(env.ctx, g.ID)
	if got.HasAdmin(bob.ID) {
		t.Error("bob still an admin after demote")
	}

	if err := env.groups.Demote(env.ctx, ada.ID, g.ID, ada.ID); KindOf(err) != KindForbidden {
		t.Errorf("demote creator: got %v", err)
	}
}

func TestLeave_OwnershipTransfer(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	g := env.fix.CreateGroup(env.ctx, "Core", ada.ID, bob.ID)
	env.notifier.reset()

	if err := env.groups.Leave(env.ctx, ada.ID, g.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	got, err := env.groups.Load(env.ctx, g.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CreatedBy != bob.ID {
		t.Errorf("created_by = %s, want %s", got.CreatedBy.Hex(), bob.ID.Hex())
	}
	if !got.HasAdmin(bob.ID) {
		t.Error("successor was not promoted to admin")
	}
	if got.HasMember(ada.ID) {
		t.Error("leaver still a member")
	}

	left := env.notifier.byEvent(EventMemberLeft)
	if len(left) != 1 || !contains(left[0].Users, bob.ID.Hex()) {
		t.Errorf("member_left events = %+v", left)
	}
}

func TestLeave_LastMemberDeletesGroup(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	g := env.fix.CreateGroup(env.ctx, "Solo", ada.ID)
	env.fix.CreateGroupMessage(env.ctx, ada.ID, g.ID, "talking to myself")

	if err := env.groups.Leave(env.ctx, ada.ID, g.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	if _, err := env.groups.Load(env.ctx, g.ID); KindOf(err) != KindNotFound {
		t.Errorf("group should be gone, got %v", err)
	}
	msgs, err := env.msgStore.ListByGroup(env.ctx, g.ID)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages not cascaded: %d left", len(msgs))
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	g := env.fix.CreateGroup(env.ctx, "Doomed", ada.ID, bob.ID)
	env.fix.CreateGroupMessage(env.ctx, ada.ID, g.ID, "last words")
	env.notifier.reset()

	if err := env.groups.Delete(env.ctx, bob.ID, g.ID); KindOf(err) != KindForbidden {
		t.Errorf("non-creator delete: got %v", err)
	}

	if err := env.groups.Delete(env.ctx, ada.ID, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.groups.Load(env.ctx, g.ID); KindOf(err) != KindNotFound {
		t.Errorf("group should be gone, got %v", err)
	}

	deleted := env.notifier.byEvent(EventGroupDeleted)
	if len(deleted) != 1 || !contains(deleted[0].Users, bob.ID.Hex()) {
		t.Errorf("group_deleted events = %+v", deleted)
	}
}

func TestListMine_UnreadCounts(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	bob := env.fix.CreateUser(env.ctx, "Bob Tables", "bob@example.com")
	g := env.fix.CreateGroup(env.ctx, "Busy", ada.ID, bob.ID)

	watermark := time.Now().UTC().Add(-time.Hour)
	env.fix.CreateActivity(env.ctx, g.ID, ada.ID, watermark)

	// Two new from bob after the watermark, one from ada herself.
	env.fix.CreateGroupMessage(env.ctx, bob.ID, g.ID, "new one")
	env.fix.CreateGroupMessage(env.ctx, bob.ID, g.ID, "new two")
	env.fix.CreateGroupMessage(env.ctx, ada.ID, g.ID, "my own")

	mine, err := env.groups.ListMine(env.ctx, ada.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("groups = %d, want 1", len(mine))
	}
	if mine[0].UnreadCount != 2 {
		t.Errorf("unread = %d, want 2 (own messages never count)", mine[0].UnreadCount)
	}
}

func TestDirectory(t *testing.T) {
	env := newTestEnv(t)
	ada := env.fix.CreateUser(env.ctx, "Ada Lovelace", "ada@example.com")
	env.fix.CreateGroup(env.ctx, "Go Gophers", ada.ID)
	env.fix.CreateGroup(env.ctx, "Rustaceans", ada.ID)
	env.fix.CreateGroup(env.ctx, "Gophers Anonymous", ada.ID)

	page, err := env.groups.Directory(env.ctx, "gopher", 1, 10, "name")
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if page.Total != 2 || len(page.Groups) != 2 {
		t.Errorf("total = %d, rows = %d, want 2/2", page.Total, len(page.Groups))
	}
	if page.Groups[0].Name != "Go Gophers" {
		t.Errorf("sort order wrong: %q first", page.Groups[0].Name)
	}
}
