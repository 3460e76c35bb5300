package authgoogle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/oauthstate"
	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/signin"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, info GoogleUserInfo) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, info GoogleUserInfo) (*Handler, *mongo.Database) {
	t.Helper()
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

	h := NewHandler(
		db,
		signin.New(sessionMgr, sessions.New(db), 24*time.Hour, logger),
		"test-client-id",
		"test-client-secret",
		"http://localhost:8080",
		errorsfeature.NewErrorLogger(logger),
		nil,
		logger,
	)
	srv := fakeGoogle(t, info)
	h.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	h.userInfoURL = srv.URL + "/userinfo"
	return h, db
}

func seedAdmin(t *testing.T, db *mongo.Database, email string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := adminuserstore.New(db, zap.NewNop()).Create(ctx, adminuserstore.CreateInput{
		Name:         "Meera",
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: "unused",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

// start runs Start and returns the state Google would echo back.
func start(t *testing.T, h *Handler, target string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("start status = %d, want 307", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("no state in redirect")
	}
	return state
}

func callback(h *Handler, state string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	q := url.Values{"state": {state}, "code": {"c0de"}}
	Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+q.Encode(), nil))
	return rec
}

func TestCallback_SignsInExistingAdmin(t *testing.T) {
	h, db := newTestHandler(t, GoogleUserInfo{Email: "Meera@Example.org", VerifiedEmail: true})
	seedAdmin(t, db, "meera@example.org")

	state := start(t, h, "/?return=/admin/testimonials")
	rec := callback(h, state)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/testimonials" {
		t.Errorf("Location = %q, want /admin/testimonials", loc)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("no session cookie set")
	}

	// The state is single use.
	if rec := callback(h, state); !strings.Contains(rec.Header().Get("Location"), "invalid_state") {
		t.Errorf("replayed state Location = %q", rec.Header().Get("Location"))
	}
}

func TestCallback_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		info  GoogleUserInfo
		want  string
		state bool
	}{
		{"unknown state", GoogleUserInfo{Email: "meera@example.org", VerifiedEmail: true}, "invalid_state", false},
		{"no account", GoogleUserInfo{Email: "stranger@example.org", VerifiedEmail: true}, "user_not_found", true},
		{"unverified", GoogleUserInfo{Email: "meera@example.org"}, "unverified_email", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, db := newTestHandler(t, tt.info)
			seedAdmin(t, db, "meera@example.org")

			state := "never-issued"
			if tt.state {
				state = start(t, h, "/")
			}
			rec := callback(h, state)
			if want := "/login?error=" + tt.want; rec.Header().Get("Location") != want {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), want)
			}
		})
	}
}

func TestStart_ExternalReturnIsDropped(t *testing.T) {
	h, db := newTestHandler(t, GoogleUserInfo{})
	state := start(t, h, "/?return="+url.QueryEscape("https://evil.example/"))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	returnTo, err := oauthstate.New(db).Redeem(ctx, state)
	if err != nil {
		t.Fatal("state was not stored")
	}
	if returnTo != "/admin" {
		t.Errorf("returnTo = %q, want /admin", returnTo)
	}
}
