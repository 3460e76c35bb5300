// internal/app/features/assignments/assignments.go
package assignments

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/gicesite/internal/app/store/assignments"
	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/authz"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/admin/sections/"

// Handler fills page sections with copies of source items.
type Handler struct {
	reg         *collections.Registry
	docs        *documentstore.Store
	assignments *assignmentstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates an assignments Handler.
func NewHandler(
	db *mongo.Database,
	reg *collections.Registry,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		reg:         reg,
		docs:        documentstore.New(db),
		assignments: assignmentstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the section screens, mounted at /admin/sections behind the
// editor guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/{name}", h.Show)
	r.Post("/{name}/assign", h.Assign)
	r.Post("/{name}/{id}/delete", h.Delete)
	return r
}

// SectionVM is the assignment screen for one section.
type SectionVM struct {
	viewdata.BaseVM
	Def            *collections.Assignment
	Source         *collections.Schema
	Assigned       []models.AssignedImage
	Sources        []models.Document
	Categories     []string
	Category       string // filter on the assigned list
	SourceCategory string // filter on the source dropdown
}

func (h *Handler) def(w http.ResponseWriter, r *http.Request) (*collections.Assignment, *collections.Schema, bool) {
	def, err := h.reg.Assignment(chi.URLParam(r, "name"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, nil, false
	}
	src, err := h.reg.Collection(def.Source)
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, nil, false
	}
	return def, src, true
}

// Show lists what is assigned and offers the source items to copy from.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	def, src, ok := h.def(w, r)
	if !ok {
		return
	}
	vm := SectionVM{
		BaseVM:         viewdata.New(r),
		Def:            def,
		Source:         src,
		Category:       query.Get(r, "category"),
		SourceCategory: query.Get(r, "source_category"),
	}
	vm.Title = def.Label

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var err error
	if vm.Assigned, err = h.assignments.List(ctx, def.Collection, vm.Category); err != nil {
		h.errLog.Log(r, "list section "+def.Name, err)
		vm.ShowError(def.Label + " could not be loaded.")
	}
	if vm.Categories, err = h.assignments.Categories(ctx, def.Collection); err != nil {
		h.errLog.Log(r, "section categories "+def.Name, err)
	}
	if _, ok := src.FieldSet().Field("categories"); ok {
		vm.Sources, err = h.docs.ListByCategory(ctx, src, "categories", vm.SourceCategory)
	} else {
		vm.Sources, err = h.docs.List(ctx, src)
	}
	if err != nil {
		h.errLog.Log(r, "list sources for "+def.Name, err)
		vm.ShowError(src.Label + " could not be loaded.")
	}
	templates.Render(w, r, "assignments/section", vm)
}

// Assign copies the chosen source item's title and image into the section.
// Later edits or deletion of the source do not reach the copy.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	def, src, ok := h.def(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		errorsfeature.Page(w, r, http.StatusBadRequest)
		return
	}
	category := strings.Join(strings.Fields(r.PostFormValue("category")), " ")
	sourceID := strings.TrimSpace(r.PostFormValue("source_id"))
	back := basePath + def.Name
	if category != "" {
		back += "?category=" + url.QueryEscape(category)
	}

	if sourceID == "" || category == "" {
		flash.Fail(w, r, "Choose an image and a category.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.docs.Get(ctx, src.Collection(), sourceID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		flash.Fail(w, r, "That image no longer exists.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.errLog.Log(r, "load source for "+def.Name, err)
		flash.Fail(w, r, "The image could not be assigned. Please try again.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	a, err := h.assignments.Assign(ctx, def.Collection, category, item)
	switch {
	case errors.Is(err, assignmentstore.ErrNoImage):
		flash.Fail(w, r, "That item has no image to assign.")
	case err != nil:
		h.errLog.Log(r, "assign to "+def.Name, err)
		flash.Fail(w, r, "The image could not be assigned. Please try again.")
	default:
		h.auditLogger.ImageAssigned(ctx, r, authz.ActorID(r), def.Name, a.Category, a.SourceID)
		flash.Ok(w, r, "Image assigned to "+a.Category+".")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Delete removes one copy from the section.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	def, _, ok := h.def(w, r)
	if !ok {
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.assignments.Delete(ctx, def.Collection, id)
	switch {
	case err != nil:
		h.errLog.Log(r, "remove from "+def.Name, err)
		flash.Fail(w, r, "The image could not be removed.")
	case n == 0:
		flash.Fail(w, r, "That image was already removed.")
	default:
		h.auditLogger.AssignmentRemoved(ctx, r, authz.ActorID(r), def.Name, id.Hex())
		flash.Ok(w, r, "Image removed.")
	}
	http.Redirect(w, r, basePath+def.Name, http.StatusSeeOther)
}
