// internal/app/features/profile/profile.go
//
// Package profile lets any signed-in dashboard user keep their own account
// up to date: name, phone and password. Role and email changes stay with
// the admin users manager.
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/authutil"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/admin/profile"

// signInsShown is how many of the user's own sign-ins the page lists.
const signInsShown = 10

type Handler struct {
	store       *adminuserstore.Store
	sessions    *sessions.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       adminuserstore.New(db, logger),
		sessions:    sessions.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes is mounted at /admin/profile behind the editor guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Show)
	r.Post("/", h.SaveDetails)
	r.Post("/password", h.ChangePassword)
	return r
}

// ProfileVM is the view model for the profile page.
type ProfileVM struct {
	viewdata.BaseVM

	Name  string
	Email string
	Phone string
	Role  string

	PasswordRules string
	SignIns       []sessions.Session
	Current       string // token of this session
}

// Show renders the signed-in user's account.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.current(ctx, w, r)
	if !ok {
		return
	}
	vm := h.newVM(ctx, r, u)
	templates.Render(w, r, "profile/show", vm)
}

// SaveDetails updates the name and phone.
func (h *Handler) SaveDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.current(ctx, w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		errorsfeature.Page(w, r, http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	phone := strings.TrimSpace(r.PostFormValue("phone"))
	if name == "" {
		vm := h.newVM(ctx, r, u)
		vm.Name, vm.Phone = name, phone
		vm.ShowError("Name is required.")
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "profile/show", vm)
		return
	}

	var changed []string
	if name != u.Name {
		changed = append(changed, "name")
	}
	if phone != u.Phone {
		changed = append(changed, "phone")
	}
	if len(changed) > 0 {
		err := h.store.Update(ctx, u.ID, adminuserstore.UpdateInput{Name: &name, Phone: &phone})
		if err != nil {
			h.errLog.Log(r, "update own profile", err)
			errorsfeature.Page(w, r, http.StatusInternalServerError)
			return
		}
		h.auditLogger.UserUpdated(ctx, r, u.ID.Hex(), u.ID, strings.Join(changed, ","))
	}

	flash.Ok(w, r, "Profile saved.")
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

var (
	errWrongPassword = errors.New("Current password is incorrect.")
	errMismatch      = errors.New("New passwords do not match.")
	errSamePassword  = errors.New("New password cannot be the same as your current password.")
)

// checkPasswordChange validates a change against the stored hash.
func checkPasswordChange(hash, current, next, confirm string) error {
	if !authutil.CheckPassword(current, hash) {
		return errWrongPassword
	}
	if err := authutil.ValidatePassword(next); err != nil {
		return err
	}
	if next != confirm {
		return errMismatch
	}
	if authutil.CheckPassword(next, hash) {
		return errSamePassword
	}
	return nil
}

// ChangePassword replaces the user's password after checking the current one.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.current(ctx, w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		errorsfeature.Page(w, r, http.StatusBadRequest)
		return
	}

	cred, err := h.store.GetCredential(ctx, u.Email)
	if err != nil {
		h.errLog.Log(r, "load credential", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}

	if err := checkPasswordChange(
		cred.PasswordHash,
		r.PostFormValue("current_password"),
		r.PostFormValue("new_password"),
		r.PostFormValue("confirm_password"),
	); err != nil {
		flash.Fail(w, r, err.Error())
		http.Redirect(w, r, basePath, http.StatusSeeOther)
		return
	}

	hash, err := authutil.HashPassword(r.PostFormValue("new_password"))
	if err != nil {
		h.errLog.Log(r, "hash password", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}
	if err := h.store.Update(ctx, u.ID, adminuserstore.UpdateInput{PasswordHash: &hash}); err != nil {
		h.errLog.Log(r, "update password", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}
	h.auditLogger.PasswordChanged(ctx, r, u.ID, u.ID.Hex())

	flash.Ok(w, r, "Password changed.")
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

// current loads the signed-in account, answering the request itself when
// it cannot.
func (h *Handler) current(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.AdminUser, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	u, err := h.store.GetByID(ctx, su.UserID())
	if errors.Is(err, mongo.ErrNoDocuments) {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.errLog.Log(r, "load own account", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return nil, false
	}
	return u, true
}

func (h *Handler) newVM(ctx context.Context, r *http.Request, u *models.AdminUser) ProfileVM {
	vm := ProfileVM{
		BaseVM:        viewdata.New(r),
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		PasswordRules: authutil.PasswordRules(),
	}
	vm.Title = "My profile"
	if su, ok := auth.CurrentUser(r); ok {
		vm.Current = su.SessionToken()
	}

	signIns, err := h.sessions.Recent(ctx, u.ID, signInsShown)
	if err != nil {
		h.logger.Warn("recent sessions", zap.Error(err))
	}
	vm.SignIns = signIns
	return vm
}
