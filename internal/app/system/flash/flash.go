// Package flash carries one-shot banner messages across a redirect.
//
// A handler sets a message just before redirecting; the next page load pops
// it into the request context, and the layout renders it as a banner that
// dismisses itself after DismissAfter unless closed earlier.
package flash

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// DismissAfter is how long a banner stays on screen.
const DismissAfter = 2500 * time.Millisecond

// Severity of a message.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
)

// Message is one banner.
type Message struct {
	Severity Severity
	Text     string
}

// IsError reports whether the banner shows a failure.
func (m Message) IsError() bool { return m.Severity == Error }

// DismissMillis is exposed for the layout's data attribute.
func (m Message) DismissMillis() int64 { return DismissAfter.Milliseconds() }

// Store keeps pending messages in their own short-lived cookie.
type Store struct {
	cs     *sessions.CookieStore
	name   string
	logger *zap.Logger
}

// NewStore creates a Store signing its cookie with key.
func NewStore(key []byte, name string, secure bool, logger *zap.Logger) *Store {
	if name == "" {
		name = "gicesite-flash"
	}
	cs := sessions.NewCookieStore(key)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cs: cs, name: name, logger: logger}
}

// Set queues a message for the next page load.
func (s *Store) Set(w http.ResponseWriter, r *http.Request, sev Severity, text string) {
	sess, err := s.cs.Get(r, s.name)
	if err != nil {
		sess, _ = s.cs.New(r, s.name)
	}
	// Only the latest message is shown.
	_ = sess.Flashes()
	sess.AddFlash(string(sev) + "|" + text)
	if err := sess.Save(r, w); err != nil && s.logger != nil {
		s.logger.Warn("flash save failed", zap.Error(err))
	}
}

type ctxKey struct{}

// Middleware pops any queued message into the request context.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.cs.Get(r, s.name)
		if err == nil {
			if flashes := sess.Flashes(); len(flashes) > 0 {
				if raw, ok := flashes[len(flashes)-1].(string); ok {
					r = r.WithContext(WithMessage(r.Context(), decode(raw)))
				}
				_ = sess.Save(r, w)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func decode(raw string) Message {
	sev, text, ok := strings.Cut(raw, "|")
	if !ok {
		return Message{Severity: Success, Text: raw}
	}
	if Severity(sev) != Error {
		return Message{Severity: Success, Text: text}
	}
	return Message{Severity: Error, Text: text}
}

// WithMessage stores m in ctx.
func WithMessage(ctx context.Context, m Message) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the message popped for this request, if any.
func FromContext(ctx context.Context) (Message, bool) {
	m, ok := ctx.Value(ctxKey{}).(Message)
	return m, ok
}

var std *Store

// Init installs the process-wide store used by the package-level helpers.
func Init(s *Store) { std = s }

// Ok queues a success banner. It is a no-op before Init.
func Ok(w http.ResponseWriter, r *http.Request, text string) {
	if std != nil {
		std.Set(w, r, Success, text)
	}
}

// Fail queues an error banner. It is a no-op before Init.
func Fail(w http.ResponseWriter, r *http.Request, text string) {
	if std != nil {
		std.Set(w, r, Error, text)
	}
}
