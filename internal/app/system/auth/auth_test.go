package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager("test-key-0123456789abcdef0123456789", "chathub-test", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func TestRequireSignedIn_Rejects(t *testing.T) {
	sm := newTestManager(t)
	h := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/groups", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSignedIn_PassesWithUser(t *testing.T) {
	sm := newTestManager(t)
	var called bool
	h := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		u, ok := CurrentUser(r)
		if !ok || u.Name != "Ada" {
			t.Errorf("CurrentUser = %+v, %v", u, ok)
		}
	}))

	req := WithTestUser(httptest.NewRequest("GET", "/api/groups", nil), &SessionUser{ID: "a", Name: "Ada"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Error("handler was not called")
	}
}

func TestSignInRoundTrip(t *testing.T) {
	sm := newTestManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	if err := sm.SignIn(rec, req, SessionUser{ID: "deadbeefdeadbeefdeadbeef", Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	// Replay the cookie through the middleware.
	req2 := httptest.NewRequest("GET", "/api/groups", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	var got *SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), req2)

	if got == nil || got.ID != "deadbeefdeadbeefdeadbeef" || got.Email != "ada@example.com" {
		t.Errorf("round-tripped user = %+v", got)
	}
}

func TestNewSessionManager_RequiresKeyInProd(t *testing.T) {
	if _, err := NewSessionManager("", "n", "", true, zap.NewNop()); err == nil {
		t.Error("expected error for empty key in production")
	}
}
