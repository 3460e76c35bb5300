// internal/app/features/adminusers/adminusers.go
package adminusers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/audit"
	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/authutil"
	"github.com/dalemusser/gicesite/internal/app/system/authz"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/inputval"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/status"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/admin/users"

var errLastAdmin = errors.New("at least one active admin must remain")

// Handler manages dashboard accounts.
type Handler struct {
	store       *adminuserstore.Store
	sessions    *sessions.Store
	events      *audit.Store
	mail        mailer.Sender
	appName     string
	loginURL    string
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates an adminusers Handler. mail may be nil, in which case
// no welcome email is sent.
func NewHandler(
	db *mongo.Database,
	mail mailer.Sender,
	appName string,
	baseURL string,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:       adminuserstore.New(db, logger),
		sessions:    sessions.New(db),
		events:      audit.New(db),
		mail:        mail,
		appName:     appName,
		loginURL:    strings.TrimRight(baseURL, "/") + "/login",
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the account routes, mounted at /admin/users behind the
// admin guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/new", h.NewForm)
	r.Post("/new", h.Create)
	r.Get("/{id}/edit", h.EditForm)
	r.Post("/{id}/edit", h.Update)
	r.Post("/{id}/disable", h.Disable)
	r.Post("/{id}/enable", h.Enable)
	r.Post("/{id}/delete", h.Delete)
	return r
}

// ListVM is the account list.
type ListVM struct {
	viewdata.BaseVM
	Items  []models.AdminUser
	SelfID string
}

// List shows every account, sorted by name.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	vm := ListVM{BaseVM: viewdata.New(r), SelfID: authz.ActorID(r)}
	vm.Title = "Admin Users"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.store.List(ctx)
	if err != nil {
		h.errLog.Log(r, "list admin users", err)
		vm.ShowError("Accounts could not be loaded.")
	}
	vm.Items = items
	templates.Render(w, r, "adminusers/list", vm)
}

// FormVM backs both the new and edit forms.
type FormVM struct {
	viewdata.BaseVM
	ID        string
	Action    string
	IsEdit    bool
	IsSelf    bool
	Name      string
	Email     string
	Phone     string
	Role      string
	ImageURL  string
	Roles     []string
	Rules     string
	Status    string
	Submitted bool

	// Edit only
	SignIns  []sessions.Session
	Activity []audit.Event
}

func (h *Handler) newFormVM(r *http.Request, title string) FormVM {
	vm := FormVM{
		BaseVM: viewdata.New(r),
		Roles:  models.AllRoles(),
		Rules:  authutil.PasswordRules(),
		Role:   models.RoleEditor,
	}
	vm.Title = title
	vm.BackURL = basePath
	return vm
}

// userInput is the submitted account form. Password is optional on edit.
type userInput struct {
	Name     string `validate:"required,max=100" label:"Name"`
	Email    string `validate:"required,email,max=254" label:"Email"`
	Phone    string `validate:"max=20" label:"Phone"`
	Role     string `validate:"required,adminrole" label:"Role"`
	ImageURL string `validate:"httpurl" label:"Photo URL"`
	Password string
}

func readInput(r *http.Request) userInput {
	return userInput{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		Role:     strings.TrimSpace(r.PostFormValue("role")),
		ImageURL: strings.TrimSpace(r.PostFormValue("image_url")),
		Password: r.PostFormValue("password"),
	}
}

// check validates the form. A blank password is accepted only when
// passwordOptional is set.
func (in userInput) check(passwordOptional bool) string {
	if res := inputval.Validate(in); res.HasErrors() {
		return res.First()
	}
	if in.Password == "" && passwordOptional {
		return ""
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return authutil.PasswordRules()
	}
	return ""
}

func (vm *FormVM) fill(in userInput) {
	vm.Name = in.Name
	vm.Email = in.Email
	vm.Phone = in.Phone
	vm.Role = in.Role
	vm.ImageURL = in.ImageURL
	vm.Submitted = true
}

// NewForm renders the empty account form.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	vm := h.newFormVM(r, "Add Admin User")
	vm.Action = basePath + "/new"
	templates.Render(w, r, "adminusers/form", vm)
}

// Create provisions a profile and its credential, then emails a welcome note.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorsfeature.Page(w, r, http.StatusBadRequest)
		return
	}
	in := readInput(r)

	vm := h.newFormVM(r, "Add Admin User")
	vm.Action = basePath + "/new"
	vm.fill(in)

	if msg := in.check(false); msg != "" {
		vm.ShowError(msg)
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "adminusers/form", vm)
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.errLog.Log(r, "hash password", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.store.Create(ctx, adminuserstore.CreateInput{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		ImageURL:     in.ImageURL,
		PasswordHash: hash,
	})
	if errors.Is(err, adminuserstore.ErrDuplicateEmail) {
		vm.ShowError("An admin user with this email already exists.")
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "adminusers/form", vm)
		return
	}
	if err != nil {
		h.errLog.Log(r, "create admin user", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}

	h.auditLogger.UserCreated(ctx, r, authz.ActorID(r), u.ID, u.Email, u.Role)
	h.sendWelcome(u)

	flash.Ok(w, r, u.Name+" added.")
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) sendWelcome(u models.AdminUser) {
	if h.mail == nil {
		return
	}
	text, html := mailer.WelcomeEmail(mailer.WelcomeEmailData{
		AppName:  h.appName,
		UserName: u.Name,
		Role:     u.Role,
		LoginURL: h.loginURL,
	})
	err := h.mail.Send(mailer.Email{
		To:       u.Email,
		Subject:  "Your " + h.appName + " dashboard account",
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil {
		h.logger.Warn("welcome email not sent", zap.String("email", u.Email), zap.Error(err))
	}
}

// load resolves {id}; it writes the 404 itself.
func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.AdminUser, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	u, err := h.store.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.errLog.Log(r, "load admin user", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return nil, false
	}
	return u, true
}

func (h *Handler) editVM(r *http.Request, u *models.AdminUser) FormVM {
	vm := h.newFormVM(r, "Edit "+u.Name)
	vm.ID = u.ID.Hex()
	vm.Action = basePath + "/" + vm.ID + "/edit"
	vm.IsEdit = true
	vm.IsSelf = authz.ActorID(r) == vm.ID
	vm.Name = u.Name
	vm.Email = u.Email
	vm.Phone = u.Phone
	vm.Role = u.Role
	vm.ImageURL = u.ImageURL
	vm.Status = u.Status
	return vm
}

// EditForm renders an account's form.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	vm := h.editVM(r, u)
	h.history(ctx, &vm, u.ID)
	templates.Render(w, r, "adminusers/form", vm)
}

const historySize = 10

// history fills recent sign-ins and audit events. Failures only hide the
// panels.
func (h *Handler) history(ctx context.Context, vm *FormVM, id primitive.ObjectID) {
	var err error
	if vm.SignIns, err = h.sessions.Recent(ctx, id, historySize); err != nil {
		h.logger.Warn("recent sessions", zap.Error(err))
	}
	if vm.Activity, err = h.events.ForUser(ctx, id, historySize); err != nil {
		h.logger.Warn("recent audit events", zap.Error(err))
	}
}

// Update saves the profile. A blank password leaves the credential alone.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		errorsfeature.Page(w, r, http.StatusBadRequest)
		return
	}
	in := readInput(r)
	vm := h.editVM(r, u)
	vm.fill(in)

	fail := func(msg string) {
		vm.ShowError(msg)
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "adminusers/form", vm)
	}

	if msg := in.check(true); msg != "" {
		fail(msg)
		return
	}
	if vm.IsSelf && in.Role != u.Role {
		fail("You cannot change your own role.")
		return
	}
	if in.Role != models.RoleAdmin {
		if err := h.keepsAnAdmin(ctx, u); err != nil {
			if errors.Is(err, errLastAdmin) {
				fail("At least one active admin must remain.")
				return
			}
			h.errLog.Log(r, "count admins", err)
			errorsfeature.Page(w, r, http.StatusInternalServerError)
			return
		}
	}

	upd := adminuserstore.UpdateInput{
		Name:     &in.Name,
		Email:    &in.Email,
		Phone:    &in.Phone,
		Role:     &in.Role,
		ImageURL: &in.ImageURL,
	}
	changed := changedFields(u, in)
	if in.Password != "" {
		hash, err := authutil.HashPassword(in.Password)
		if err != nil {
			h.errLog.Log(r, "hash password", err)
			errorsfeature.Page(w, r, http.StatusInternalServerError)
			return
		}
		upd.PasswordHash = &hash
		changed = append(changed, "password")
	}

	err := h.store.Update(ctx, u.ID, upd)
	if errors.Is(err, adminuserstore.ErrDuplicateEmail) {
		fail("An admin user with this email already exists.")
		return
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		h.errLog.Log(r, "update admin user", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}

	h.auditLogger.UserUpdated(ctx, r, authz.ActorID(r), u.ID, strings.Join(changed, ","))
	if in.Password != "" && vm.IsSelf {
		h.auditLogger.PasswordChanged(ctx, r, u.ID, authz.ActorID(r))
	}

	flash.Ok(w, r, in.Name+" saved.")
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func changedFields(u *models.AdminUser, in userInput) []string {
	var out []string
	if u.Name != in.Name {
		out = append(out, "name")
	}
	if !strings.EqualFold(u.Email, in.Email) {
		out = append(out, "email")
	}
	if u.Phone != in.Phone {
		out = append(out, "phone")
	}
	if u.Role != in.Role {
		out = append(out, "role")
	}
	if u.ImageURL != in.ImageURL {
		out = append(out, "image_url")
	}
	return out
}

// keepsAnAdmin reports errLastAdmin when u is the only active admin.
func (h *Handler) keepsAnAdmin(ctx context.Context, u *models.AdminUser) error {
	if u.Role != models.RoleAdmin || u.Status != status.Active {
		return nil
	}
	n, err := h.store.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return errLastAdmin
	}
	return nil
}

// Disable blocks sign-in for an account.
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, status.Disabled)
}

// Enable restores sign-in for an account.
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, status.Active)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, st string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	disabling := st == status.Disabled
	if disabling {
		if authz.ActorID(r) == u.ID.Hex() {
			flash.Fail(w, r, "You cannot disable your own account.")
			http.Redirect(w, r, basePath, http.StatusSeeOther)
			return
		}
		if !h.guardLastAdmin(ctx, w, r, u) {
			return
		}
	}

	if err := h.store.Update(ctx, u.ID, adminuserstore.UpdateInput{Status: &st}); err != nil {
		h.errLog.Log(r, "set admin user status", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}
	h.auditLogger.UserStatusChanged(ctx, r, authz.ActorID(r), u.ID, disabling)
	if disabling {
		h.revokeSessions(ctx, u)
	}

	if disabling {
		flash.Ok(w, r, u.Name+" disabled.")
	} else {
		flash.Ok(w, r, u.Name+" enabled.")
	}
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

// guardLastAdmin redirects with a message when u is the last active admin.
func (h *Handler) guardLastAdmin(ctx context.Context, w http.ResponseWriter, r *http.Request, u *models.AdminUser) bool {
	err := h.keepsAnAdmin(ctx, u)
	if err == nil {
		return true
	}
	if errors.Is(err, errLastAdmin) {
		flash.Fail(w, r, "At least one active admin must remain.")
		http.Redirect(w, r, basePath, http.StatusSeeOther)
		return false
	}
	h.errLog.Log(r, "count admins", err)
	errorsfeature.Page(w, r, http.StatusInternalServerError)
	return false
}

// Delete removes an account and its credential.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	if authz.ActorID(r) == u.ID.Hex() {
		flash.Fail(w, r, "You cannot delete your own account.")
		http.Redirect(w, r, basePath, http.StatusSeeOther)
		return
	}
	if !h.guardLastAdmin(ctx, w, r, u) {
		return
	}

	if _, err := h.store.Delete(ctx, u.ID); err != nil {
		h.errLog.Log(r, "delete admin user", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}
	h.auditLogger.UserDeleted(ctx, r, authz.ActorID(r), u.ID, u.Email)
	h.revokeSessions(ctx, u)

	flash.Ok(w, r, u.Name+" deleted.")
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

// revokeSessions closes the account's open sign-in records. The session
// middleware already rejects disabled or deleted accounts; this keeps the
// records honest.
func (h *Handler) revokeSessions(ctx context.Context, u *models.AdminUser) {
	if _, err := h.sessions.CloseByUser(ctx, u.ID, sessions.EndReasonRevoked); err != nil {
		h.logger.Warn("sessions not closed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}
