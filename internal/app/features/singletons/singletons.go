// internal/app/features/singletons/singletons.go
package singletons

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	singletonstore "github.com/dalemusser/gicesite/internal/app/store/singletons"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/authz"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/admin/s/"

// Handler edits the single-document configs. A singleton that was never
// saved shows an empty form; the first save creates it.
type Handler struct {
	reg         *collections.Registry
	store       *singletonstore.Store
	images      *mediaupload.Adapter
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a singletons Handler.
func NewHandler(
	db *mongo.Database,
	reg *collections.Registry,
	images *mediaupload.Adapter,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		reg:         reg,
		store:       singletonstore.New(db),
		images:      images,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the editor routes, mounted at /admin/s behind the editor
// guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/{slug}", h.Show)
	r.Post("/{slug}", h.Save)
	return r
}

// IndexVM lists the singletons.
type IndexVM struct {
	viewdata.BaseVM
	Items []*collections.Singleton
}

// Index lists every singleton with a link to its editor.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	vm := IndexVM{BaseVM: viewdata.New(r), Items: h.reg.Singletons}
	vm.Title = "Page Settings"
	templates.Render(w, r, "singletons/index", vm)
}

// FormVM is the editor for one singleton.
type FormVM struct {
	viewdata.BaseVM
	Def    *collections.Singleton
	Saved  bool
	Fields []viewdata.FormField
	Action string
}

func (h *Handler) def(w http.ResponseWriter, r *http.Request) (*collections.Singleton, bool) {
	def, err := h.reg.Singleton(chi.URLParam(r, "slug"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	return def, true
}

func (h *Handler) formVM(r *http.Request, def *collections.Singleton) FormVM {
	vm := FormVM{BaseVM: viewdata.New(r), Def: def, Action: basePath + def.Slug}
	vm.Title = def.Label
	vm.BackURL = basePath
	return vm
}

// Show renders the stored values, or an empty form before the first save.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	def, ok := h.def(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	vm := h.formVM(r, def)
	doc, found, err := h.store.Get(ctx, def)
	if err != nil {
		h.errLog.Log(r, "load singleton "+def.Slug, err)
		vm.ShowError(def.Label + " could not be loaded.")
	}
	vm.Saved = found
	fs := def.FieldSet()
	vm.Fields = viewdata.FormFields(fs, fs.FormValues(doc), doc, nil, r)
	templates.Render(w, r, "singletons/form", vm)
}

// Save merges the submitted fields, creating the document on first save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	def, ok := h.def(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	vm := h.formVM(r, def)
	doc, found, err := h.store.Get(ctx, def)
	if err != nil {
		h.errLog.Log(r, "load singleton "+def.Slug, err)
		h.renderFailed(w, r, vm, nil, nil, http.StatusInternalServerError, def.Label+" could not be loaded.")
		return
	}
	vm.Saved = found

	if err := mediaupload.ParseForm(w, r); err != nil {
		h.renderFailed(w, r, vm, doc, nil, http.StatusBadRequest, mediaupload.Message(err))
		return
	}
	fs := def.FieldSet()
	vals, errs := fs.Patch(r.PostForm)
	if len(errs) > 0 {
		h.renderFailed(w, r, vm, doc, errs, http.StatusUnprocessableEntity, errs.First(fs))
		return
	}
	for _, f := range fs.Images() {
		res, err := h.images.AcquireField(ctx, r, f.Key)
		switch {
		case err != nil:
			errs[f.Key] = mediaupload.Message(err)
		case res.Uploaded:
			vals[f.Key] = res.URL
		case f.Required && doc.String(f.Key) == "":
			errs[f.Key] = f.Label + " is required."
		}
	}
	if len(errs) > 0 {
		h.renderFailed(w, r, vm, doc, errs, http.StatusUnprocessableEntity, errs.First(fs))
		return
	}

	created, err := h.store.Save(ctx, def, vals)
	if err != nil {
		h.errLog.Log(r, "save singleton "+def.Slug, err)
		h.renderFailed(w, r, vm, doc, nil, http.StatusInternalServerError, def.Label+" could not be saved. Please try again.")
		return
	}
	h.auditLogger.SingletonSaved(ctx, r, authz.ActorID(r), def.Slug, created)
	flash.Ok(w, r, def.Label+" saved.")
	http.Redirect(w, r, basePath+def.Slug, http.StatusSeeOther)
}

func (h *Handler) renderFailed(w http.ResponseWriter, r *http.Request, vm FormVM, stored models.Document, errs collections.FieldErrors, status int, banner string) {
	fs := vm.Def.FieldSet()
	values := fs.FormValues(stored)
	for k, v := range fs.RawValues(r.PostForm) {
		if _, sent := r.PostForm[k]; sent {
			values[k] = v
		}
	}
	vm.Fields = viewdata.FormFields(fs, values, stored, errs, r)
	vm.ShowError(banner)
	w.WriteHeader(status)
	templates.Render(w, r, "singletons/form", vm)
}
