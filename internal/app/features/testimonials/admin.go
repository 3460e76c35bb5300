// internal/app/features/testimonials/admin.go
package testimonials

import (
	"context"
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	"github.com/dalemusser/gicesite/internal/app/store/audit"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const adminBase = "/admin/testimonials"

// AdminListVM is the moderation list.
type AdminListVM struct {
	viewdata.BaseVM
	Items   []models.Testimonial
	Pending int
}

// AdminList shows every testimonial, pending first.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	vm := AdminListVM{BaseVM: viewdata.New(r)}
	vm.Title = "Testimonials"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.store.ListAll(ctx)
	if err != nil {
		h.errLog.Log(r, "list testimonials", err)
		vm.ShowError("Testimonials could not be loaded.")
	}
	vm.Items = items
	for _, t := range items {
		if t.Pending {
			vm.Pending++
		}
	}
	templates.Render(w, r, "testimonials/admin_list", vm)
}

// FormVM is the staff create/edit form.
type FormVM struct {
	viewdata.BaseVM
	ID      string
	Draft   Draft
	Pending bool
	Errors  map[string]string
	Image   viewdata.ImageField
	Ratings []int
	Action  string
}

func (h *Handler) formVM(r *http.Request, title, action string) FormVM {
	vm := FormVM{
		BaseVM:  viewdata.New(r),
		Errors:  map[string]string{},
		Ratings: []int{5, 4, 3, 2, 1},
		Action:  action,
		Image:   viewdata.ImageField{Key: "image_url", Label: "Photo"},
	}
	vm.Title = title
	vm.BackURL = adminBase
	return vm
}

// NewForm renders an empty staff form.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	vm := h.formVM(r, "New Testimonial", adminBase+"/new")
	vm.Draft.Rating = models.MaxRating
	templates.Render(w, r, "testimonials/admin_form", vm)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, vm FormVM, status int, banner string) {
	vm.Draft = readDraft(r)
	vm.Image.Source = r.PostFormValue("image_url_source")
	vm.Image.Link = r.PostFormValue("image_url_link")
	vm.ShowError(banner)
	w.WriteHeader(status)
	templates.Render(w, r, "testimonials/admin_form", vm)
}

// Create stores a staff-entered testimonial. It is published immediately.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	vm := h.formVM(r, "New Testimonial", adminBase+"/new")
	if err := mediaupload.ParseForm(w, r); err != nil {
		h.renderForm(w, r, vm, http.StatusBadRequest, mediaupload.Message(err))
		return
	}
	d := readDraft(r)
	if vm.Errors = d.validate(); len(vm.Errors) > 0 {
		h.renderForm(w, r, vm, http.StatusUnprocessableEntity, "Please fix the highlighted fields.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	img, err := h.images.AcquireField(ctx, r, "image_url")
	if err != nil {
		h.renderForm(w, r, vm, http.StatusUnprocessableEntity, mediaupload.Message(err))
		return
	}
	t := models.Testimonial{Name: d.Name, Role: d.Role, Body: d.Body, Rating: d.Rating}
	if img.Uploaded {
		t.ImageURL, t.PhotoKind = img.URL, models.PhotoUpload
		if strings.TrimSpace(r.PostFormValue("image_url_link")) != "" && !hasFile(r, "image_url_file") {
			t.PhotoKind = models.PhotoLink
		}
	}

	created, err := h.store.Create(ctx, t)
	if err != nil {
		h.errLog.Log(r, "create testimonial", err)
		h.renderForm(w, r, vm, http.StatusInternalServerError, "The testimonial could not be saved.")
		return
	}
	h.auditLogger.ContentChanged(ctx, r, actorID(r), audit.EventContentCreated, "testimonials", created.ID.Hex())
	flash.Ok(w, r, "Testimonial added.")
	http.Redirect(w, r, adminBase, http.StatusSeeOther)
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Testimonial, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	t, err := h.store.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.errLog.Log(r, "load testimonial", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return nil, false
	}
	return t, true
}

// EditForm renders the stored testimonial.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	vm := h.formVM(r, "Edit Testimonial", adminBase+"/"+t.ID.Hex()+"/edit")
	vm.ID = t.ID.Hex()
	vm.Pending = t.Pending
	vm.Draft = Draft{Name: t.Name, Role: t.Role, Body: t.Body, Rating: t.Rating}
	vm.Image.Current = t.ImageURL
	templates.Render(w, r, "testimonials/admin_form", vm)
}

// Update applies only the fields present in the submitted form. A photo is
// replaced only when a new one was actually acquired.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	t, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	vm := h.formVM(r, "Edit Testimonial", adminBase+"/"+t.ID.Hex()+"/edit")
	vm.ID = t.ID.Hex()
	vm.Pending = t.Pending
	vm.Image.Current = t.ImageURL

	if err := mediaupload.ParseForm(w, r); err != nil {
		h.renderForm(w, r, vm, http.StatusBadRequest, mediaupload.Message(err))
		return
	}

	in, errs := patchFrom(r)
	if vm.Errors = errs; len(errs) > 0 {
		h.renderForm(w, r, vm, http.StatusUnprocessableEntity, "Please fix the highlighted fields.")
		return
	}
	img, err := h.images.AcquireField(ctx, r, "image_url")
	if err != nil {
		h.renderForm(w, r, vm, http.StatusUnprocessableEntity, mediaupload.Message(err))
		return
	}
	if img.Uploaded {
		kind := models.PhotoUpload
		if !hasFile(r, "image_url_file") {
			kind = models.PhotoLink
		}
		in.ImageURL, in.PhotoKind = &img.URL, &kind
	}

	switch err := h.store.Update(ctx, t.ID, in); {
	case errors.Is(err, mongo.ErrNoDocuments):
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	case errors.Is(err, testimonialstore.ErrInvalid):
		h.renderForm(w, r, vm, http.StatusUnprocessableEntity, "Name, message and a rating from 1 to 5 are required.")
		return
	case err != nil:
		h.errLog.Log(r, "update testimonial", err)
		h.renderForm(w, r, vm, http.StatusInternalServerError, "The testimonial could not be saved.")
		return
	}
	h.auditLogger.ContentChanged(ctx, r, actorID(r), audit.EventContentUpdated, "testimonials", t.ID.Hex())
	flash.Ok(w, r, "Testimonial updated.")
	http.Redirect(w, r, adminBase, http.StatusSeeOther)
}

// patchFrom builds an update from the submitted keys only.
func patchFrom(r *http.Request) (testimonialstore.UpdateInput, map[string]string) {
	var in testimonialstore.UpdateInput
	d := readDraft(r)
	all := d.validate()
	errs := map[string]string{}
	if _, ok := r.PostForm["name"]; ok {
		in.Name = &d.Name
		if msg, bad := all["name"]; bad {
			errs["name"] = msg
		}
	}
	if _, ok := r.PostForm["role"]; ok {
		in.Role = &d.Role
		if msg, bad := all["role"]; bad {
			errs["role"] = msg
		}
	}
	if _, ok := r.PostForm["body"]; ok {
		in.Body = &d.Body
		if msg, bad := all["body"]; bad {
			errs["body"] = msg
		}
	}
	if _, ok := r.PostForm["rating"]; ok {
		in.Rating = &d.Rating
		if msg, bad := all["rating"]; bad {
			errs["rating"] = msg
		}
	}
	return in, errs
}

// Approve publishes a pending testimonial.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	approver := ""
	if u, ok := auth.CurrentUser(r); ok {
		approver = u.Name
	}
	switch err := h.store.Approve(ctx, id, approver); {
	case errors.Is(err, mongo.ErrNoDocuments):
		flash.Fail(w, r, "That testimonial no longer exists.")
	case err != nil:
		h.errLog.Log(r, "approve testimonial", err)
		flash.Fail(w, r, "The testimonial could not be approved.")
	default:
		h.auditLogger.TestimonialApproved(ctx, r, actorID(r), id)
		flash.Ok(w, r, "Testimonial approved and published.")
	}
	http.Redirect(w, r, adminBase, http.StatusSeeOther)
}

// Delete removes a testimonial.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.store.Delete(ctx, id)
	switch {
	case err != nil:
		h.errLog.Log(r, "delete testimonial", err)
		flash.Fail(w, r, "The testimonial could not be deleted.")
	case n == 0:
		flash.Fail(w, r, "That testimonial no longer exists.")
	default:
		h.auditLogger.ContentChanged(ctx, r, actorID(r), audit.EventContentDeleted, "testimonials", id.Hex())
		flash.Ok(w, r, "Testimonial deleted.")
	}
	http.Redirect(w, r, adminBase, http.StatusSeeOther)
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}
