package signin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                      "/admin",
		"/admin/c/news":         "/admin/c/news",
		"https://evil.example/": "/admin",
	}
	for in, want := range tests {
		if got := ReturnPath(in); got != want {
			t.Errorf("ReturnPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStartThenEnd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mgr, err := auth.NewSessionManager("v3Qm8xN1cR6tY0wK4zH7jL2pB9sD5fGa", "gice-admin", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	store := sessions.New(db)
	s := New(mgr, store, time.Hour, zap.NewNop())
	u := &models.AdminUser{ID: primitive.NewObjectID(), Name: "Ravi", Email: "ravi@gice.org", Role: models.RoleEditor}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	if err := s.Start(rec, req, u, "password"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("Start() set no cookie")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	got, err := store.Recent(ctx, u.ID, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Recent() = %d, %v", len(got), err)
	}
	if got[0].Method != "password" || got[0].UserAgent != "test-agent" || !got[0].Open() {
		t.Errorf("session = %+v", got[0])
	}
	if d := got[0].ExpiresAt.Sub(got[0].LoginAt); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("session lifetime = %v, want 1h", d)
	}

	out := auth.WithTestUser(httptest.NewRequest(http.MethodPost, "/logout", nil),
		&auth.SessionUser{ID: u.ID.Hex(), Token: got[0].Token})
	s.End(httptest.NewRecorder(), out)

	if n, _ := store.CountOpen(ctx); n != 0 {
		t.Errorf("CountOpen() after End = %d, want 0", n)
	}
}
