package users

import (
	"net/http"
	"strings"
	"testing"

	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/testutil"
	"go.uber.org/zap"
)

type stubOnline []string

func (s stubOnline) Online() []string { return s }

func TestServeList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	fix := testutil.NewFixtures(t, db)

	ada := fix.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	bob := fix.CreateUser(ctx, "Bob Tables", "bob@example.com")
	zed := fix.CreateUser(ctx, "Zed Last", "zed@example.com")

	h := NewHandler(userstore.New(db), stubOnline{bob.ID.Hex()}, zap.NewNop())

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/api/users", testutil.AsTestUser(ada))
	rec := testutil.NewRecorder()
	h.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	// Caller is excluded, others are present.
	rec.AssertContains(t, bob.ID.Hex())
	rec.AssertContains(t, zed.ID.Hex())
	if body := rec.Body.String(); strings.Contains(body, ada.ID.Hex()) {
		t.Errorf("caller appears in the sidebar: %s", body)
	}
	rec.AssertContains(t, `"is_online":true`)
	rec.AssertContains(t, `"is_online":false`)
}
