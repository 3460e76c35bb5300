package login

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/ratelimit"
	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/authutil"
	"github.com/dalemusser/gicesite/internal/app/system/signin"
	"github.com/dalemusser/gicesite/internal/app/system/status"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	h        *Handler
	users    *adminuserstore.Store
	sessions *sessions.Store
	user     models.AdminUser
}

func setup(t *testing.T) fixture {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager(
		"test-session-key-for-testing-1234567890",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	store := sessions.New(db)
	h := NewHandler(
		db,
		signin.New(sessionMgr, store, 24*time.Hour, logger),
		ratelimit.New(db, 3, 15*time.Minute, 15*time.Minute),
		true,
		errorsfeature.NewErrorLogger(logger),
		nil,
		logger,
	)

	users := adminuserstore.New(db, logger)
	hash, err := authutil.HashPassword("sunflower42")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := users.Create(ctx, adminuserstore.CreateInput{
		Name:         "Meera",
		Email:        "meera@example.org",
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return fixture{h: h, users: users, sessions: store, user: u}
}

func (f fixture) submit(email, password, ret string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Routes(f.h).ServeHTTP(rec, testutil.NewFormRequest("/", url.Values{
		"email":    {email},
		"password": {password},
		"return":   {ret},
	}))
	return rec
}

func TestSubmit_Success(t *testing.T) {
	f := setup(t)

	rec := f.submit("Meera@Example.org", "sunflower42", "/admin/c/news")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/c/news" {
		t.Errorf("Location = %q, want /admin/c/news", loc)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("no session cookie set")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	recent, err := f.sessions.Recent(ctx, f.user.ID, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Recent() = %d, err %v", len(recent), err)
	}
	if recent[0].Method != "password" {
		t.Errorf("Method = %q", recent[0].Method)
	}
}

func TestSubmit_ExternalReturnFallsBack(t *testing.T) {
	f := setup(t)

	rec := f.submit("meera@example.org", "sunflower42", "https://evil.example/")
	if loc := rec.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}
}

func TestSubmit_Failures(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"empty", "", "", http.StatusUnprocessableEntity},
		{"unknown email", "nobody@example.org", "sunflower42", http.StatusUnauthorized},
		{"wrong password", "meera@example.org", "moonflower", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.submit(tt.email, tt.password, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSubmit_DisabledAccount(t *testing.T) {
	f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	st := status.Disabled
	if err := f.users.Update(ctx, f.user.ID, adminuserstore.UpdateInput{Status: &st}); err != nil {
		t.Fatal(err)
	}

	rec := f.submit("meera@example.org", "sunflower42", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Error("expected the disabled message")
	}
}

func TestSubmit_LockoutBlocksEvenTheRightPassword(t *testing.T) {
	f := setup(t)

	for i := 0; i < 2; i++ {
		if rec := f.submit("meera@example.org", "wrong-one", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}
	if rec := f.submit("meera@example.org", "wrong-one", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", rec.Code)
	}

	rec := f.submit("meera@example.org", "sunflower42", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("locked-out sign-in status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Too many failed attempts") {
		t.Error("expected the lockout message")
	}
}

func TestShow(t *testing.T) {
	f := setup(t)

	rec := httptest.NewRecorder()
	Routes(f.h).ServeHTTP(rec, testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/?error=user_not_found", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No dashboard account uses that Google address.") {
		t.Error("expected the callback error message")
	}
	if !strings.Contains(body, "/auth/google") {
		t.Error("expected the Google button")
	}

	rec = httptest.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.EditorUser())
	Routes(f.h).ServeHTTP(rec, testutil.WithCSRFToken(req))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin" {
		t.Errorf("signed-in visit = %d %q, want 303 /admin", rec.Code, rec.Header().Get("Location"))
	}
}
