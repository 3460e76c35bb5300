// internal/app/features/home/home.go
package home

import (
	"context"
	"fmt"
	"net/http"

	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	singletonstore "github.com/dalemusser/gicesite/internal/app/store/singletons"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/htmlsanitize"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	homeNewsLimit         = 3
	homeTestimonialsLimit = 6
	newsSummaryRunes      = 140
)

// Handler provides home page handlers.
type Handler struct {
	docs         *documentstore.Store
	singletons   *singletonstore.Store
	testimonials *testimonialstore.Store
	reg          *collections.Registry
	logger       *zap.Logger
}

// NewHandler creates a new home Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		docs:         documentstore.New(db),
		singletons:   singletonstore.New(db),
		testimonials: testimonialstore.New(db),
		reg:          collections.Default(),
		logger:       logger,
	}
}

// HomeVM is the view model for the home page.
type HomeVM struct {
	viewdata.BaseVM
	Hero          models.Document
	Stats         models.Document
	Vision        models.Document
	Services      []models.Document
	Benefits      []models.Document
	MissionImages []models.Document
	News          []models.Document
	Testimonials  []models.Testimonial
}

// Routes returns a chi.Router with home routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	return r
}

// Index renders the landing page. Sections load concurrently; a section that
// fails to load renders empty and the page shows an error banner.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	vm := HomeVM{BaseVM: viewdata.New(r)}
	vm.Title = "Home"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "home page load")
	defer cancel()

	var g errgroup.Group
	g.Go(func() (err error) { vm.Hero, err = h.singleton(ctx, "hero-background"); return })
	g.Go(func() (err error) { vm.Stats, err = h.singleton(ctx, "about-stats"); return })
	g.Go(func() (err error) { vm.Vision, err = h.singleton(ctx, "vision-image"); return })
	g.Go(func() (err error) { vm.Services, err = h.list(ctx, "services"); return })
	g.Go(func() (err error) { vm.Benefits, err = h.list(ctx, "benefits"); return })
	g.Go(func() (err error) { vm.MissionImages, err = h.list(ctx, "missionImages"); return })
	g.Go(func() error {
		news, err := h.list(ctx, "news")
		vm.News = latestPublished(news, homeNewsLimit)
		return err
	})
	g.Go(func() (err error) {
		vm.Testimonials, err = h.testimonials.ListPublic(ctx, homeTestimonialsLimit)
		if err != nil {
			err = fmt.Errorf("testimonials: %w", err)
		}
		return
	})

	if err := g.Wait(); err != nil {
		h.logger.Error("home page: section load failed", zap.Error(err))
		vm.ShowError("Some content could not be loaded. Please refresh the page.")
	}

	templates.Render(w, r, "home/index", vm)
}

func (h *Handler) singleton(ctx context.Context, slug string) (models.Document, error) {
	def, err := h.reg.Singleton(slug)
	if err != nil {
		return nil, err
	}
	doc, _, err := h.singletons.Get(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slug, err)
	}
	return doc, nil
}

func (h *Handler) list(ctx context.Context, name string) ([]models.Document, error) {
	schema, err := h.reg.Collection(name)
	if err != nil {
		return nil, err
	}
	docs, err := h.docs.List(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return docs, nil
}

// latestPublished keeps published stories, already ordered newest first.
func latestPublished(docs []models.Document, n int) []models.Document {
	out := make([]models.Document, 0, n)
	for _, d := range docs {
		if !d.Bool("published") {
			continue
		}
		d["summary"] = htmlsanitize.Summary(d.String("summary"), d.String("body"), newsSummaryRunes)
		out = append(out, d)
		if len(out) == n {
			break
		}
	}
	return out
}
