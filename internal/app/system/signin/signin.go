// internal/app/system/signin/signin.go
//
// Package signin starts a dashboard session once a sign-in method has
// identified the admin. Password and Google sign-in both end here.
package signin

import (
	"net/http"
	"time"

	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/network"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Starter issues the cookie session and records the sign-in.
type Starter struct {
	sessionMgr *auth.SessionManager
	sessions   *sessions.Store
	maxAge     time.Duration
	logger     *zap.Logger
}

// New creates a Starter. maxAge should match the session cookie lifetime.
func New(sessionMgr *auth.SessionManager, store *sessions.Store, maxAge time.Duration, logger *zap.Logger) *Starter {
	return &Starter{sessionMgr: sessionMgr, sessions: store, maxAge: maxAge, logger: logger}
}

// Start signs u in. The sign-in record is best effort; the cookie is not.
func (s *Starter) Start(w http.ResponseWriter, r *http.Request, u *models.AdminUser, method string) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}
	if err := s.sessionMgr.CreateSession(w, r, u.ID, token); err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.sessions.Open(r.Context(), sessions.Session{
		Token:     token,
		UserID:    u.ID,
		Method:    method,
		IPAddress: network.GetClientIP(r),
		UserAgent: r.UserAgent(),
		LoginAt:   now,
		ExpiresAt: now.Add(s.maxAge),
	})
	if err != nil {
		s.logger.Warn("sign-in not recorded", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	return nil
}

// End closes the current session record and clears the cookie.
func (s *Starter) End(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r); ok {
		if token := user.SessionToken(); token != "" {
			if err := s.sessions.Close(r.Context(), token, sessions.EndReasonLogout); err != nil {
				s.logger.Warn("session not closed", zap.Error(err))
			}
		}
	}
	s.sessionMgr.DestroySession(w, r)
}

// ReturnPath keeps a post-sign-in redirect on this site and inside the
// dashboard, defaulting to /admin.
func ReturnPath(ret string) string {
	return urlutil.SafeReturn(ret, "", "/admin")
}
