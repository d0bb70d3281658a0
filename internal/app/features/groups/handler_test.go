package groups

import (
	"net/http"
	"testing"

	"github.com/dalemusser/chathub/internal/app/chat"
	activitystore "github.com/dalemusser/chathub/internal/app/store/activity"
	groupstore "github.com/dalemusser/chathub/internal/app/store/groups"
	messagestore "github.com/dalemusser/chathub/internal/app/store/messages"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/testutil"
	"go.uber.org/zap"
)

type stubOnline struct{ ids []string }

func (s *stubOnline) Online() []string { return s.ids }

type testRig struct {
	router http.Handler
	fix    *testutil.Fixtures
	online *stubOnline
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	gs := groupstore.New(db)
	us := userstore.New(db)
	ms := messagestore.New(db)
	as := activitystore.New(db)

	groupSvc := chat.NewGroupService(gs, us, ms, as, nil, log)
	msgSvc := chat.NewMessageService(ms, gs, us, as, nil, nil, log)

	sm, err := auth.NewSessionManager("", "chathub_session", "", false, log)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	online := &stubOnline{}
	h := NewHandler(groupSvc, msgSvc, online, log)
	return &testRig{
		router: Routes(h, sm),
		fix:    testutil.NewFixtures(t, db),
		online: online,
	}
}

func (rig *testRig) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	rig.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndFetchGroup(t *testing.T) {
	rig := newTestRig(t)
	ctx := testutil.TestContext(t)
	ada := rig.fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	bob := rig.fix.CreateUser(ctx, "Bob Tables", "bob@example.com")

	rec := rig.do(testutil.NewJSONRequest(http.MethodPost, "/",
		`{"name":"Core Team","member_ids":["`+bob.ID.Hex()+`"]}`, testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"name":"Core Team"`)
	rec.AssertContains(t, bob.ID.Hex())

	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Core Team"`)
}

func TestGroupAuthz(t *testing.T) {
	rig := newTestRig(t)
	ctx := testutil.TestContext(t)
	ada := rig.fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	bob := rig.fix.CreateUser(ctx, "Bob Tables", "bob@example.com")
	eve := rig.fix.CreateUser(ctx, "Eve Online", "eve@example.com")
	g := rig.fix.CreateGroup(ctx, "Core", ada.ID, bob.ID)

	// Outsiders cannot see details; members can.
	rec := rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+g.ID.Hex(), testutil.AsTestUser(eve)))
	rec.AssertStatus(t, http.StatusForbidden)
	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+g.ID.Hex(), testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusOK)

	// Plain members cannot delete; the creator can.
	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+g.ID.Hex(), testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusForbidden)
	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+g.ID.Hex(), testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusOK)
}

func TestGroupBadIDs(t *testing.T) {
	rig := newTestRig(t)
	ctx := testutil.TestContext(t)
	ada := rig.fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")

	rec := rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/not-a-hex-id", testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusBadRequest)

	// Anonymous callers never reach a handler.
	rec = rig.do(testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestGroupMessagesOverREST(t *testing.T) {
	rig := newTestRig(t)
	ctx := testutil.TestContext(t)
	ada := rig.fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	bob := rig.fix.CreateUser(ctx, "Bob Tables", "bob@example.com")
	g := rig.fix.CreateGroup(ctx, "Core", ada.ID, bob.ID)

	rec := rig.do(testutil.NewJSONRequest(http.MethodPost, "/"+g.ID.Hex()+"/messages",
		`{"text":"hello group"}`, testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusCreated)

	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+g.ID.Hex()+"/messages", testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"text":"hello group"`)

	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodPost, "/"+g.ID.Hex()+"/read", testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusOK)

	// After mark-read the group shows no unread for bob.
	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"unread_count":0`)
}

func TestAdminsEndpoint(t *testing.T) {
	rig := newTestRig(t)
	ctx := testutil.TestContext(t)
	ada := rig.fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	bob := rig.fix.CreateUser(ctx, "Bob Tables", "bob@example.com")
	g := rig.fix.CreateGroup(ctx, "Core", ada.ID, bob.ID)

	rec := rig.do(testutil.NewJSONRequest(http.MethodPut, "/"+g.ID.Hex()+"/admins",
		`{"user_id":"`+bob.ID.Hex()+`","action":"promote"}`, testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusOK)

	rec = rig.do(testutil.NewJSONRequest(http.MethodPut, "/"+g.ID.Hex()+"/admins",
		`{"user_id":"`+bob.ID.Hex()+`","action":"sideways"}`, testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+g.ID.Hex(), testutil.AsTestUser(ada)))
	rec.AssertContains(t, bob.ID.Hex())
}

func TestMembersOnlineFlags(t *testing.T) {
	rig := newTestRig(t)
	ctx := testutil.TestContext(t)
	ada := rig.fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	bob := rig.fix.CreateUser(ctx, "Bob Tables", "bob@example.com")
	g := rig.fix.CreateGroup(ctx, "Core", ada.ID, bob.ID)
	rig.online.ids = []string{bob.ID.Hex()}

	rec := rig.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+g.ID.Hex()+"/members", testutil.AsTestUser(ada)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"is_online":true`)
	rec.AssertContains(t, `"is_online":false`)
}
