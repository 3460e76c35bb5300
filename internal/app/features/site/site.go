// internal/app/features/site/site.go
package site

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/gicesite/internal/app/store/assignments"
	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	singletonstore "github.com/dalemusser/gicesite/internal/app/store/singletons"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/htmlsanitize"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const loadFailed = "This content could not be loaded. Please try again."

// Handler serves the public content pages.
type Handler struct {
	docs        *documentstore.Store
	singletons  *singletonstore.Store
	assignments *assignmentstore.Store
	reg         *collections.Registry
	pageSize    int
	errLog      *errorsfeature.ErrorLogger
	logger      *zap.Logger
}

// NewHandler creates a site Handler. pageSize is the gallery page length.
func NewHandler(db *mongo.Database, pageSize int, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &Handler{
		docs:        documentstore.New(db),
		singletons:  singletonstore.New(db),
		assignments: assignmentstore.New(db),
		reg:         collections.Default(),
		pageSize:    pageSize,
		errLog:      errLog,
		logger:      logger,
	}
}

// Routes mounts the public pages on the root router.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/about", h.About)
	r.Get("/services", h.Services)
	r.Get("/team", h.Team)
	r.Get("/news", h.NewsList)
	r.Get("/news/{id}", h.NewsDetail)
	r.Get("/gallery", h.Gallery)
	r.Get("/gallery/more", h.GalleryMore)
	r.Get("/operations", h.Section("operations", "Our Operations"))
	r.Get("/careers", h.Section("careers", "Careers"))
	return r
}

// ListVM is shared by the simple list pages.
type ListVM struct {
	viewdata.BaseVM
	Items    []models.Document
	Category string
}

func (h *Handler) schema(name string) *collections.Schema {
	s, err := h.reg.Collection(name)
	if err != nil {
		// The registry is embedded; a missing name is a programming error.
		panic(err)
	}
	return s
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, collection, title, page string) {
	vm := ListVM{BaseVM: viewdata.New(r), Category: query.Get(r, "category")}
	vm.Title = title

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	schema := h.schema(collection)
	var err error
	if _, ok := schema.FieldSet().Field("categories"); ok {
		vm.Items, err = h.docs.ListByCategory(ctx, schema, "categories", vm.Category)
	} else {
		vm.Items, err = h.docs.List(ctx, schema)
	}
	if err != nil {
		h.errLog.Log(r, "list "+collection, err)
		vm.ShowError(loadFailed)
	}
	templates.Render(w, r, page, vm)
}

// Services lists services, optionally filtered by ?category=.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "services", "Services", "site/services")
}

// Team lists team members in display order.
func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "team", "Our Team", "site/team")
}

// AboutVM is the view model for the about page.
type AboutVM struct {
	viewdata.BaseVM
	Background models.Document
	Stats      models.Document
	Vision     models.Document
	Profiles   []models.Document
}

// About renders the about page from its singletons and the profile list.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	vm := AboutVM{BaseVM: viewdata.New(r)}
	vm.Title = "About Us"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var failed error
	for slug, dst := range map[string]*models.Document{
		"about-background": &vm.Background,
		"about-stats":      &vm.Stats,
		"vision-image":     &vm.Vision,
	} {
		def, err := h.reg.Singleton(slug)
		if err != nil {
			failed = err
			continue
		}
		doc, _, err := h.singletons.Get(ctx, def)
		if err != nil {
			failed = err
			continue
		}
		*dst = doc
	}
	profiles, err := h.docs.List(ctx, h.schema("giceProfiles"))
	if err != nil {
		failed = err
	}
	vm.Profiles = profiles

	if failed != nil {
		h.errLog.Log(r, "about page load", failed)
		vm.ShowError(loadFailed)
	}
	templates.Render(w, r, "site/about", vm)
}

// NewsList lists published stories, newest first.
func (h *Handler) NewsList(w http.ResponseWriter, r *http.Request) {
	vm := ListVM{BaseVM: viewdata.New(r), Category: query.Get(r, "category")}
	vm.Title = "News"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	docs, err := h.docs.ListByCategory(ctx, h.schema("news"), "categories", vm.Category)
	if err != nil {
		h.errLog.Log(r, "list news", err)
		vm.ShowError(loadFailed)
	}
	for _, d := range docs {
		if d.Bool("published") {
			vm.Items = append(vm.Items, withSummary(d))
		}
	}
	templates.Render(w, r, "site/news", vm)
}

// summaryRunes bounds the excerpt shown for stories saved without a summary.
const summaryRunes = 220

// withSummary fills a blank news summary from the story body.
func withSummary(d models.Document) models.Document {
	d["summary"] = htmlsanitize.Summary(d.String("summary"), d.String("body"), summaryRunes)
	return d
}

// StoryVM is the view model for one news story.
type StoryVM struct {
	viewdata.BaseVM
	Story models.Document
	Body  template.HTML
}

// NewsDetail renders one published story. Drafts are not found.
func (h *Handler) NewsDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.docs.Get(ctx, h.schema("news").Collection(), chi.URLParam(r, "id"))
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !doc.Bool("published")) {
		errorsfeature.Page(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		h.errLog.Log(r, "load news story", err)
		errorsfeature.Page(w, r, http.StatusInternalServerError)
		return
	}

	vm := StoryVM{
		BaseVM: viewdata.New(r),
		Story:  doc,
		Body:   htmlsanitize.PrepareForDisplay(doc.String("body")),
	}
	vm.Title = doc.String("title")
	vm.BackURL = httpnav.ResolveBackURL(r, "/news")
	templates.Render(w, r, "site/news_story", vm)
}

// SectionVM is the view model for an assignment-backed page section.
type SectionVM struct {
	viewdata.BaseVM
	Images     []models.AssignedImage
	Categories []string
	Category   string
}

// Section renders the copies assigned to an assignment section.
func (h *Handler) Section(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm := SectionVM{BaseVM: viewdata.New(r), Category: query.Get(r, "category")}
		vm.Title = title

		def, err := h.reg.Assignment(name)
		if err != nil {
			errorsfeature.Page(w, r, http.StatusNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		if vm.Images, err = h.assignments.List(ctx, def.Collection, vm.Category); err != nil {
			h.errLog.Log(r, "list section "+name, err)
			vm.ShowError(loadFailed)
		}
		if vm.Categories, err = h.assignments.Categories(ctx, def.Collection); err != nil {
			h.logger.Warn("section categories", zap.String("section", name), zap.Error(err))
		}
		templates.Render(w, r, "site/section", vm)
	}
}
