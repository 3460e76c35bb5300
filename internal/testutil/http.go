package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/dalemusser/gicesite/internal/app/resources"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestUser is the signed-in admin user a request is made as.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func AdminUser() TestUser {
	return TestUser{ID: primitive.NewObjectID().Hex(), Name: "Test Admin", Email: "admin@test.com", Role: "admin"}
}

func EditorUser() TestUser {
	return TestUser{ID: primitive.NewObjectID().Hex(), Name: "Test Editor", Email: "editor@test.com", Role: "editor"}
}

// WithUser signs r in as u, skipping the session cookie.
func WithUser(r *http.Request, u TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
}

func NewAuthenticatedRequest(method, target string, u TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), u)
}

func NewAuthenticatedRequestWithCSRF(method, target string, u TestUser) *http.Request {
	return WithCSRFToken(NewAuthenticatedRequest(method, target, u))
}

// NewFormRequest builds a urlencoded POST that already passed CSRF checks.
func NewFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return WithCSRFToken(req)
}

// gorilla/csrf stores the masked token under this plain string key.
const csrfTokenKey = "gorilla.csrf.Token"

// WithCSRFToken gives csrf.Token(r) a value so forms render their hidden
// field as they would behind the middleware.
func WithCSRFToken(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), csrfTokenKey, "test-csrf-token")) //nolint:staticcheck
}

var (
	bootOnce sync.Once
	bootErr  error
)

// MustBootTemplates registers the shared layouts and boots the engine once
// per test binary. Feature templates register themselves on import.
func MustBootTemplates(t interface{ Fatalf(string, ...any) }) {
	bootOnce.Do(func() {
		resources.LoadSharedTemplates()
		eng := templates.New(false)
		if bootErr = eng.Boot(zap.NewNop()); bootErr == nil {
			templates.UseEngine(eng, zap.NewNop())
		}
	})
	if bootErr != nil {
		t.Fatalf("boot templates: %v", bootErr)
	}
}

// ResponseRecorder adds assertions to httptest.ResponseRecorder.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

type errorfer interface{ Errorf(string, ...any) }

func (r *ResponseRecorder) AssertStatus(t errorfer, want int) {
	if r.Code != want {
		t.Errorf("status = %d, want %d", r.Code, want)
	}
}

// AssertRedirect expects a 303 See Other to location.
func (r *ResponseRecorder) AssertRedirect(t errorfer, location string) {
	if r.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", r.Code)
	}
	if got := r.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func (r *ResponseRecorder) AssertContains(t errorfer, want string) {
	if !strings.Contains(r.Body.String(), want) {
		t.Errorf("body does not contain %q", want)
	}
}
