// internal/app/features/login/login.go
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/ratelimit"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/authutil"
	"github.com/dalemusser/gicesite/internal/app/system/authz"
	"github.com/dalemusser/gicesite/internal/app/system/signin"
	"github.com/dalemusser/gicesite/internal/app/system/status"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const badCredentials = "Invalid email or password."

// Handler serves the staff sign-in page.
type Handler struct {
	users         *adminuserstore.Store
	lockout       *ratelimit.Store // nil disables lockout
	starter       *signin.Starter
	googleEnabled bool
	errLog        *errorsfeature.ErrorLogger
	auditLogger   *auditlog.Logger
	logger        *zap.Logger
}

// NewHandler creates a login Handler. lockout may be nil.
func NewHandler(
	db *mongo.Database,
	starter *signin.Starter,
	lockout *ratelimit.Store,
	googleEnabled bool,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:         adminuserstore.New(db, logger),
		lockout:       lockout,
		starter:       starter,
		googleEnabled: googleEnabled,
		errLog:        errLog,
		auditLogger:   auditLogger,
		logger:        logger,
	}
}

// Routes returns the sign-in routes, mounted at /login.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Show)
	r.Post("/", h.Submit)
	return r
}

// LoginVM is the view model for the sign-in page.
type LoginVM struct {
	viewdata.BaseVM
	Email         string
	ReturnURL     string
	GoogleEnabled bool
}

// messages for the ?error= codes the Google callback redirects with.
var callbackErrors = map[string]string{
	"invalid_state":    "That sign-in link has expired. Please try again.",
	"oauth_error":      "Google sign-in is not available right now.",
	"user_not_found":   "No dashboard account uses that Google address.",
	"account_disabled": "This account is disabled.",
	"unverified_email": "Google has not verified that email address.",
	"session_error":    "Something went wrong. Please try again.",
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, code int, email, ret, errMsg string) {
	vm := LoginVM{
		BaseVM:        viewdata.New(r),
		Email:         email,
		ReturnURL:     ret,
		GoogleEnabled: h.googleEnabled,
	}
	vm.Title = "Staff sign in"
	if errMsg != "" {
		vm.ShowError(errMsg)
	}
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	templates.Render(w, r, "login/index", vm)
}

// Show renders the sign-in form. Signed-in staff go straight to the dashboard.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	ret := query.Get(r, "return")
	if authz.IsLoggedIn(r) {
		http.Redirect(w, r, signin.ReturnPath(ret), http.StatusSeeOther)
		return
	}
	msg := ""
	if code := query.Get(r, "error"); code != "" {
		msg = callbackErrors[code]
		if msg == "" {
			msg = "Sign-in failed. Please try again."
		}
	}
	h.render(w, r, http.StatusOK, "", ret, msg)
}

// Submit checks an email and password against the stored credential.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorsfeature.Page(w, r, http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	ret := r.PostFormValue("return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if email == "" || password == "" {
		h.render(w, r, http.StatusUnprocessableEntity, email, ret, "Email and password are required.")
		return
	}

	if h.lockout != nil {
		if until, locked := h.lockout.Locked(ctx, email); locked {
			h.auditLogger.LoginLockedOut(ctx, r, email)
			h.render(w, r, http.StatusTooManyRequests, email, ret, lockedMessage(until))
			return
		}
	}

	u, err := h.users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.auditLogger.LoginFailedUserNotFound(ctx, r, email)
		h.failed(ctx, w, r, email, ret)
		return
	}
	if err != nil {
		h.errLog.Log(r, "sign-in lookup", err)
		h.render(w, r, http.StatusServiceUnavailable, email, ret, "Sign-in is temporarily unavailable. Please try again.")
		return
	}

	cred, err := h.users.GetCredential(ctx, email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.errLog.Log(r, "sign-in credential", err)
		h.render(w, r, http.StatusServiceUnavailable, email, ret, "Sign-in is temporarily unavailable. Please try again.")
		return
	}
	if cred == nil || !authutil.CheckPassword(password, cred.PasswordHash) {
		h.auditLogger.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		h.failed(ctx, w, r, email, ret)
		return
	}

	// Checked after the password so a disabled account is not revealed to
	// someone guessing.
	if u.Status != status.Active {
		h.auditLogger.LoginFailedUserDisabled(ctx, r, u.ID, u.Email)
		h.render(w, r, http.StatusForbidden, email, ret, "This account is disabled.")
		return
	}

	if h.lockout != nil {
		if err := h.lockout.Clear(ctx, email); err != nil {
			h.logger.Warn("sign-in failures not cleared", zap.Error(err))
		}
	}
	if err := h.starter.Start(w, r, u, "password"); err != nil {
		h.errLog.Log(r, "start session", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}
	h.auditLogger.LoginSuccess(ctx, r, u.ID, "password", u.Email)

	http.Redirect(w, r, signin.ReturnPath(ret), http.StatusSeeOther)
}

// failed counts a bad attempt and re-renders with a generic message.
func (h *Handler) failed(ctx context.Context, w http.ResponseWriter, r *http.Request, email, ret string) {
	if h.lockout != nil {
		until, locked, err := h.lockout.Fail(ctx, email)
		if err != nil {
			h.logger.Warn("sign-in failure not counted", zap.Error(err))
		}
		if locked {
			h.auditLogger.LoginLockedOut(ctx, r, email)
			h.render(w, r, http.StatusTooManyRequests, email, ret, lockedMessage(until))
			return
		}
	}
	h.render(w, r, http.StatusUnauthorized, email, ret, badCredentials)
}

func lockedMessage(until time.Time) string {
	mins := int(time.Until(until).Minutes()) + 1
	return fmt.Sprintf("Too many failed attempts. Please try again in %d minute(s).", mins)
}
