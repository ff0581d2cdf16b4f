package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/famstack/famcoin/internal/auth"
	"github.com/famstack/famcoin/internal/database"
	"github.com/famstack/famcoin/internal/store"
)

func setupSessionTest(t *testing.T) (*store.SessionStore, int64) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	children := store.NewChildStore(db)
	parent, err := children.CreateParent("Dana")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := children.Create(parent.ID, "Riley", 9)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return store.NewSessionStore(db), child.ID
}

func sessionHandler(sessions *store.SessionStore, got *auth.ChildContext) http.Handler {
	return RequireChildSession(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cc, ok := auth.FromContext(r.Context()); ok {
			*got = cc
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireChildSessionAcceptsValidToken(t *testing.T) {
	sessions, childID := setupSessionTest(t)
	sess, err := sessions.Create(childID, time.Hour, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var got auth.ChildContext
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	sessionHandler(sessions, &got).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.ChildID != childID {
		t.Errorf("child id = %d, want %d", got.ChildID, childID)
	}
}

func TestRequireChildSessionRejectsMissingOrBadToken(t *testing.T) {
	sessions, _ := setupSessionTest(t)
	var got auth.ChildContext
	h := sessionHandler(sessions, &got)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/tasks", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me/tasks", nil)
	req.Header.Set("Authorization", "Bearer deadbeef")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rec.Code)
	}
}

func TestRequireChildSessionExpiry(t *testing.T) {
	sessions, childID := setupSessionTest(t)

	expired, err := sessions.Create(childID, -time.Minute, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var got auth.ChildContext
	h := sessionHandler(sessions, &got)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d, want 401", rec.Code)
	}

	// The expired session was deleted on sight.
	if sess, _ := sessions.GetByToken(expired.Token); sess != nil {
		t.Error("expired session still stored after rejection")
	}
}

func TestRequireChildSessionDevSessionNeverExpires(t *testing.T) {
	sessions, childID := setupSessionTest(t)

	dev, err := sessions.Create(childID, -time.Minute, true)
	if err != nil {
		t.Fatalf("create dev session: %v", err)
	}

	var got auth.ChildContext
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/me/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+dev.Token)
	sessionHandler(sessions, &got).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("dev session status = %d, want 200", rec.Code)
	}
	if !got.Dev {
		t.Error("dev flag not propagated to context")
	}
}
