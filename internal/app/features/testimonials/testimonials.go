// internal/app/features/testimonials/testimonials.go
package testimonials

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/intake"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/throttle"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Notify addresses the staff notice sent for each public submission.
// An empty To disables it.
type Notify struct {
	To        string
	AppName   string
	ReviewURL string
}

// Handler serves the public testimonial pages and the moderation screens.
type Handler struct {
	store       *testimonialstore.Store
	images      *mediaupload.Adapter
	codec       *intake.Codec
	limiter     *throttle.Limiter
	mail        mailer.Sender
	notify      Notify
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a testimonials Handler. limiter and mail may be nil.
func NewHandler(
	db *mongo.Database,
	images *mediaupload.Adapter,
	codec *intake.Codec,
	limiter *throttle.Limiter,
	mail mailer.Sender,
	notify Notify,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:       testimonialstore.New(db),
		images:      images,
		codec:       codec,
		limiter:     limiter,
		mail:        mail,
		notify:      notify,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the public routes, mounted at /testimonials.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/share", h.ShareForm)
	r.Post("/share", h.ShareSubmit)
	r.Get("/thanks", h.Thanks)
	return r
}

// AdminRoutes returns the moderation routes, mounted at /admin/testimonials
// behind the editor guard.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.AdminList)
	r.Get("/new", h.NewForm)
	r.Post("/new", h.Create)
	r.Get("/{id}/edit", h.EditForm)
	r.Post("/{id}/edit", h.Update)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/delete", h.Delete)
	return r
}

// ListVM is the view model for the public list.
type ListVM struct {
	viewdata.BaseVM
	Items []models.Testimonial
}

// List shows approved testimonials only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	vm := ListVM{BaseVM: viewdata.New(r)}
	vm.Title = "Testimonials"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.store.ListPublic(ctx, 0)
	if err != nil {
		h.errLog.Log(r, "list public testimonials", err)
		vm.ShowError("Testimonials could not be loaded. Please try again.")
	}
	vm.Items = items
	templates.Render(w, r, "testimonials/list", vm)
}

// Thanks is where a successful submission lands.
func (h *Handler) Thanks(w http.ResponseWriter, r *http.Request) {
	vm := viewdata.New(r)
	vm.Title = "Thank you"
	templates.Render(w, r, "testimonials/thanks", vm)
}
