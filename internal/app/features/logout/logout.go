// internal/app/features/logout/logout.go
package logout

import (
	"net/http"

	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/signin"
	"github.com/go-chi/chi/v5"
)

// Handler ends dashboard sessions.
type Handler struct {
	starter     *signin.Starter
	auditLogger *auditlog.Logger
}

// NewHandler creates a logout Handler.
func NewHandler(starter *signin.Starter, auditLogger *auditlog.Logger) *Handler {
	return &Handler{starter: starter, auditLogger: auditLogger}
}

// Routes returns the logout route, mounted at /logout. Only POST signs out,
// so a prefetched link cannot end a session.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.Logout)
	return r
}

// Logout closes the session record, clears the cookie and returns home.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r); ok {
		h.auditLogger.Logout(r.Context(), r, user.ID)
	}
	h.starter.End(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
