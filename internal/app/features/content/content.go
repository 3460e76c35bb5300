// internal/app/features/content/content.go
//
// Package content is the generic collection editor. Every collection in the
// schema registry gets a list, a create form, an edit form and delete, all
// driven by the collection's field definitions.
package content

import (
	"context"
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	"github.com/dalemusser/gicesite/internal/app/store/audit"
	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
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

const basePath = "/admin/c/"

// Handler serves the collection editor.
type Handler struct {
	reg         *collections.Registry
	docs        *documentstore.Store
	images      *mediaupload.Adapter
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a content Handler.
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
		docs:        documentstore.New(db),
		images:      images,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the editor routes, mounted at /admin/c behind the editor
// guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/{collection}", h.List)
	r.Get("/{collection}/new", h.NewForm)
	r.Post("/{collection}/new", h.Create)
	r.Get("/{collection}/{id}/edit", h.EditForm)
	r.Post("/{collection}/{id}/edit", h.Update)
	r.Post("/{collection}/{id}/delete", h.Delete)
	return r
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) (*collections.Schema, bool) {
	s, err := h.reg.Collection(chi.URLParam(r, "collection"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	return s, true
}

// Row is one document in the list, reduced to its summary columns.
type Row struct {
	ID    string
	Cells []string
	Thumb string
}

// ListVM is the collection list.
type ListVM struct {
	viewdata.BaseVM
	Schema  *collections.Schema
	Columns []string
	Rows    []Row
}

// List shows every document in the collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schema(w, r)
	if !ok {
		return
	}
	vm := ListVM{BaseVM: viewdata.New(r), Schema: s}
	vm.Title = s.Label

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.docs.List(ctx, s)
	if err != nil {
		h.errLog.Log(r, "list "+s.Name, err)
		vm.ShowError(s.Label + " could not be loaded.")
	}
	vm.Columns, vm.Rows = summarize(s, docs)
	templates.Render(w, r, "content/list", vm)
}

func summarize(s *collections.Schema, docs []models.Document) ([]string, []Row) {
	fs := s.FieldSet()
	var cols []string
	for _, key := range s.Summary {
		if f, ok := fs.Field(key); ok && f.Label != "" {
			cols = append(cols, f.Label)
		} else {
			cols = append(cols, key)
		}
	}
	var thumbKey string
	if imgs := fs.Images(); len(imgs) > 0 {
		thumbKey = imgs[0].Key
	}

	rows := make([]Row, 0, len(docs))
	for _, d := range docs {
		row := Row{ID: d.ID()}
		for _, key := range s.Summary {
			f, _ := fs.Field(key)
			switch f.Kind {
			case collections.KindCategories:
				row.Cells = append(row.Cells, strings.Join(d.Strings(key), ", "))
			case collections.KindBool:
				if d.Bool(key) {
					row.Cells = append(row.Cells, "Yes")
				} else {
					row.Cells = append(row.Cells, "No")
				}
			default:
				row.Cells = append(row.Cells, d.String(key))
			}
		}
		if thumbKey != "" {
			row.Thumb = d.String(thumbKey)
		}
		rows = append(rows, row)
	}
	return cols, rows
}

// FormVM is the create/edit form.
type FormVM struct {
	viewdata.BaseVM
	Schema *collections.Schema
	ID     string
	Fields []viewdata.FormField
	Action string
}

func (h *Handler) formVM(r *http.Request, s *collections.Schema, id string) FormVM {
	vm := FormVM{BaseVM: viewdata.New(r), Schema: s, ID: id}
	if id == "" {
		vm.Title = "New " + s.Singular
		vm.Action = basePath + s.Name + "/new"
	} else {
		vm.Title = "Edit " + s.Singular
		vm.Action = basePath + s.Name + "/" + id + "/edit"
	}
	vm.BackURL = basePath + s.Name
	return vm
}

// NewForm renders an empty form.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schema(w, r)
	if !ok {
		return
	}
	vm := h.formVM(r, s, "")
	vm.Fields = viewdata.FormFields(s.FieldSet(), nil, nil, nil, r)
	templates.Render(w, r, "content/form", vm)
}

// renderFailed re-renders the form with what was typed, so nothing the user
// entered is lost.
func (h *Handler) renderFailed(w http.ResponseWriter, r *http.Request, vm FormVM, stored models.Document, errs collections.FieldErrors, status int, banner string) {
	fs := vm.Schema.FieldSet()
	values := fs.FormValues(stored)
	for k, v := range fs.RawValues(r.PostForm) {
		if _, sent := r.PostForm[k]; sent {
			values[k] = v
		}
	}
	for _, k := range r.PostForm[collections.FieldsMarker] {
		if _, sent := r.PostForm[k]; !sent {
			values[k] = ""
		}
	}
	vm.Fields = viewdata.FormFields(fs, values, stored, errs, r)
	vm.ShowError(banner)
	w.WriteHeader(status)
	templates.Render(w, r, "content/form", vm)
}

// acquireImages resolves every image field on the form. Only fields that
// produced a new URL end up in vals; everything else keeps what is stored.
func (h *Handler) acquireImages(ctx context.Context, r *http.Request, fs collections.FieldSet, vals collections.Values, errs collections.FieldErrors) {
	for _, f := range fs.Images() {
		res, err := h.images.AcquireField(ctx, r, f.Key)
		if err != nil {
			h.logger.Info("image not acquired", zap.String("field", f.Key), zap.Error(err))
			errs[f.Key] = mediaupload.Message(err)
			continue
		}
		if res.Uploaded {
			vals[f.Key] = res.URL
		}
	}
}

// missingImages flags required image fields that have neither a new URL nor
// a stored one.
func missingImages(fs collections.FieldSet, vals collections.Values, stored models.Document, errs collections.FieldErrors) {
	for _, f := range fs.Images() {
		if !f.Required || errs[f.Key] != "" {
			continue
		}
		if _, ok := vals[f.Key]; ok || stored.String(f.Key) != "" {
			continue
		}
		label := f.Label
		if label == "" {
			label = f.Key
		}
		errs[f.Key] = label + " is required."
	}
}

// Create inserts a new document. Validation runs before any upload so a
// rejected form never leaves an orphaned image behind.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schema(w, r)
	if !ok {
		return
	}
	vm := h.formVM(r, s, "")
	if err := mediaupload.ParseForm(w, r); err != nil {
		h.renderFailed(w, r, vm, nil, nil, http.StatusBadRequest, mediaupload.Message(err))
		return
	}

	fs := s.FieldSet()
	vals, errs := fs.Draft(r.PostForm)
	if len(errs) > 0 {
		h.renderFailed(w, r, vm, nil, errs, http.StatusUnprocessableEntity, errs.First(fs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	h.acquireImages(ctx, r, fs, vals, errs)
	missingImages(fs, vals, nil, errs)
	if len(errs) > 0 {
		h.renderFailed(w, r, vm, nil, errs, http.StatusUnprocessableEntity, errs.First(fs))
		return
	}

	doc, err := h.docs.Create(ctx, s.Collection(), vals)
	if err != nil {
		h.errLog.Log(r, "create "+s.Name, err)
		h.renderFailed(w, r, vm, nil, nil, http.StatusInternalServerError, "The "+strings.ToLower(s.Singular)+" could not be saved. Please try again.")
		return
	}
	h.auditLogger.ContentChanged(ctx, r, authz.ActorID(r), audit.EventContentCreated, s.Name, doc.ID())
	flash.Ok(w, r, s.Singular+" added.")
	http.Redirect(w, r, basePath+s.Name, http.StatusSeeOther)
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request, s *collections.Schema) (models.Document, bool) {
	doc, err := h.docs.Get(ctx, s.Collection(), chi.URLParam(r, "id"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.errLog.Log(r, "load "+s.Name, err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return nil, false
	}
	return doc, true
}

// EditForm renders the stored document.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schema(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, ok := h.load(ctx, w, r, s)
	if !ok {
		return
	}
	vm := h.formVM(r, s, doc.ID())
	fs := s.FieldSet()
	vm.Fields = viewdata.FormFields(fs, fs.FormValues(doc), doc, nil, r)
	templates.Render(w, r, "content/form", vm)
}

// Update merges the submitted fields into the stored document. Fields the
// form did not carry, and images nobody replaced, are left untouched.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schema(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	doc, ok := h.load(ctx, w, r, s)
	if !ok {
		return
	}
	vm := h.formVM(r, s, doc.ID())
	if err := mediaupload.ParseForm(w, r); err != nil {
		h.renderFailed(w, r, vm, doc, nil, http.StatusBadRequest, mediaupload.Message(err))
		return
	}

	fs := s.FieldSet()
	patch, errs := fs.Patch(r.PostForm)
	if len(errs) > 0 {
		h.renderFailed(w, r, vm, doc, errs, http.StatusUnprocessableEntity, errs.First(fs))
		return
	}
	h.acquireImages(ctx, r, fs, patch, errs)
	missingImages(fs, patch, doc, errs)
	if len(errs) > 0 {
		h.renderFailed(w, r, vm, doc, errs, http.StatusUnprocessableEntity, errs.First(fs))
		return
	}

	switch err := h.docs.Update(ctx, s.Collection(), doc.ID(), patch); {
	case errors.Is(err, documentstore.ErrNotFound):
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	case err != nil:
		h.errLog.Log(r, "update "+s.Name, err)
		h.renderFailed(w, r, vm, doc, nil, http.StatusInternalServerError, "The "+strings.ToLower(s.Singular)+" could not be saved. Please try again.")
		return
	}
	h.auditLogger.ContentChanged(ctx, r, authz.ActorID(r), audit.EventContentUpdated, s.Name, doc.ID())
	flash.Ok(w, r, s.Singular+" saved.")
	http.Redirect(w, r, basePath+s.Name, http.StatusSeeOther)
}

// Delete removes one document. Copies assigned from it into page sections
// are separate documents and stay.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schema(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.docs.Delete(ctx, s.Collection(), id)
	switch {
	case err != nil:
		h.errLog.Log(r, "delete "+s.Name, err)
		flash.Fail(w, r, "The "+strings.ToLower(s.Singular)+" could not be deleted.")
	case n == 0:
		flash.Fail(w, r, "That "+strings.ToLower(s.Singular)+" no longer exists.")
	default:
		h.auditLogger.ContentChanged(ctx, r, authz.ActorID(r), audit.EventContentDeleted, s.Name, id)
		flash.Ok(w, r, s.Singular+" deleted.")
	}
	http.Redirect(w, r, basePath+s.Name, http.StatusSeeOther)
}
