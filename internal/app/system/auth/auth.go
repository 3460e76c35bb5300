// Package auth keeps dashboard sign-ins in a signed cookie and guards the
// /admin routes by role.
//
// The cookie only says which admin user signed in and under which session
// token. Who that user is, and whether they may still sign in, is looked up
// on every request through a UserFetcher.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/normalize"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	keyUserID = "uid"
	keyToken  = "tok"
)

// MinKeyLength is the shortest session key accepted in production.
const MinKeyLength = 32

var (
	ErrNoKey   = errors.New("auth: session key is empty")
	ErrWeakKey = errors.New("auth: session key is too weak for production; use 32+ random characters")
)

// UserFetcher resolves the user id stored in the cookie. It returns nil
// when the account is gone or disabled, which signs the browser out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionUser is the signed-in admin user for the current request.
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string // admin or editor
	Token string // identifies the sign-in record
}

// UserID returns the id as an ObjectID, or the zero id if it is malformed.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func (u *SessionUser) SessionToken() string { return u.Token }

type ctxKey struct{}

// CurrentUser returns the signed-in user, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser puts u in the request context the way LoadSessionUser does.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

// SessionManager owns the sign-in cookie.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	logger  *zap.Logger
}

// NewSessionManager builds the cookie store. With secure set (production)
// a short or placeholder key is refused; otherwise it is only logged.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrNoKey
	}
	if weakKey(sessionKey) {
		if secure {
			return nil, ErrWeakKey
		}
		logger.Warn("session key is weak; set a 32+ character random key before deploying",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "gicesite-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		// Lax keeps the cookie on links from emails but not on cross-site posts.
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// SetUserFetcher installs the lookup used by LoadSessionUser. Without one
// no request is ever signed in.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// LoadSessionUser puts the signed-in user, if any, in the request context.
// A cookie naming a missing or disabled account is cleared.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logCookieError(r, err)
		}

		userID, _ := sess.Values[keyUserID].(string)
		if userID == "" || sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}

		u := sm.fetcher.FetchUser(r.Context(), userID)
		if u == nil {
			sm.logger.Info("session dropped: admin user missing or disabled", zap.String("user_id", userID))
			delete(sess.Values, keyUserID)
			delete(sess.Values, keyToken)
			_ = sess.Save(r, w)
			next.ServeHTTP(w, r)
			return
		}
		u.Token, _ = sess.Values[keyToken].(string)
		next.ServeHTTP(w, WithTestUser(r, u))
	})
}

// RequireRole admits signed-in users holding one of allowed. Visitors are
// sent to /login with a return path, other roles to /forbidden. Callers that
// do not accept HTML get a bare status.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]bool, len(allowed))
	for _, role := range allowed {
		set[normalize.Role(role)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			switch {
			case !ok:
				deny(w, r, http.StatusUnauthorized, "/login?return="+url.QueryEscape(r.URL.RequestURI()))
			case !set[normalize.Role(u.Role)]:
				deny(w, r, http.StatusForbidden, "/forbidden")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, page string) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, page, http.StatusSeeOther)
		return
	}
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

// CreateSession writes the sign-in cookie.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, token string) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}
	sess.Values[keyUserID] = userID.Hex()
	sess.Values[keyToken] = token
	return sess.Save(r, w)
}

// DestroySession expires the sign-in cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}
	delete(sess.Values, keyUserID)
	delete(sess.Values, keyToken)
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

// GenerateSessionToken returns 32 random bytes, URL-safe encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var placeholderKeyParts = []string{"dev-only", "change", "placeholder", "default", "example", "insecure", "test-key", "secret123", "password"}

func weakKey(key string) bool {
	if len(key) < MinKeyLength {
		return true
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderKeyParts {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// logCookieError grades an unreadable cookie. Expiry is routine, a bad MAC
// may be tampering, anything else is usually a rotated key.
func (sm *SessionManager) logCookieError(r *http.Request, err error) {
	var sc securecookie.Error
	msg := strings.ToLower(err.Error())
	switch {
	case errors.As(err, &sc) && sc.IsDecode() && strings.Contains(msg, "expired"):
		sm.logger.Debug("session cookie expired", zap.String("path", r.URL.Path))
	case errors.As(err, &sc) && sc.IsDecode() && (strings.Contains(msg, "mac") || strings.Contains(msg, "hash")):
		sm.logger.Warn("session cookie failed MAC check",
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()))
	default:
		sm.logger.Info("session cookie unreadable, starting fresh", zap.String("path", r.URL.Path), zap.Error(err))
	}
}
