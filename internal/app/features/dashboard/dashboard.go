// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/gicesite/internal/app/store/audit"
	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	donationstore "github.com/dalemusser/gicesite/internal/app/store/donations"
	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/authz"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
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
	recentEvents = 10
	failedWindow = 24 * time.Hour
)

// Handler serves the dashboard landing page.
type Handler struct {
	reg          *collections.Registry
	docs         *documentstore.Store
	testimonials *testimonialstore.Store
	donations    *donationstore.Store
	sessions     *sessions.Store
	audit        *audit.Store
	logger       *zap.Logger
}

// NewHandler creates a dashboard Handler.
func NewHandler(db *mongo.Database, reg *collections.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		reg:          reg,
		docs:         documentstore.New(db),
		testimonials: testimonialstore.New(db),
		donations:    donationstore.New(db),
		sessions:     sessions.New(db),
		audit:        audit.New(db),
		logger:       logger,
	}
}

// Routes returns the dashboard route, mounted at /admin behind the editor
// guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Show)
	return r
}

// Tile is one collection and how many documents it holds.
type Tile struct {
	Label string
	Count int64
	Href  string
}

// DashboardVM is the view model for the dashboard.
type DashboardVM struct {
	viewdata.BaseVM
	Tiles   []Tile
	Pending int64

	// Admin only
	ShowAdmin     bool
	OpenSessions  int64
	FailedSignIns int64 // last 24h
	Totals        []string
	Recent        []audit.Event
}

// Show counts every collection and the testimonials awaiting review. Admins
// also see donation totals, open sessions and the latest audit events.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	vm := DashboardVM{BaseVM: viewdata.New(r), ShowAdmin: authz.IsAdmin(r)}
	vm.Title = "Dashboard"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "dashboard load")
	defer cancel()

	vm.Tiles = make([]Tile, len(h.reg.Collections))
	var g errgroup.Group
	for i, s := range h.reg.Collections {
		vm.Tiles[i] = Tile{Label: s.Label, Href: "/admin/c/" + s.Name}
		g.Go(func() error {
			n, err := h.docs.Count(ctx, s.Name)
			if err != nil {
				return fmt.Errorf("count %s: %w", s.Name, err)
			}
			vm.Tiles[i].Count = n
			return nil
		})
	}
	g.Go(func() (err error) {
		vm.Pending, err = h.testimonials.CountPending(ctx)
		return
	})
	if vm.ShowAdmin {
		h.loadAdmin(ctx, &g, &vm)
	}

	if err := g.Wait(); err != nil {
		h.logger.Error("dashboard: section load failed", zap.Error(err))
		vm.ShowError("Some figures could not be loaded. Please refresh the page.")
	}

	templates.Render(w, r, "dashboard/index", vm)
}

func (h *Handler) loadAdmin(ctx context.Context, g *errgroup.Group, vm *DashboardVM) {
	g.Go(func() (err error) {
		vm.OpenSessions, err = h.sessions.CountOpen(ctx)
		return
	})
	g.Go(func() error {
		sums, err := h.donations.Totals(ctx)
		if err != nil {
			return fmt.Errorf("donation totals: %w", err)
		}
		vm.Totals = formatTotals(sums)
		return nil
	})
	g.Go(func() (err error) {
		vm.Recent, err = h.audit.Recent(ctx, recentEvents)
		return
	})
	g.Go(func() (err error) {
		vm.FailedSignIns, err = h.audit.CountFailedSignIns(ctx, time.Now().Add(-failedWindow))
		return
	})
}

func formatTotals(sums map[string]int64) []string {
	out := make([]string, 0, len(sums))
	for cur, amt := range sums {
		out = append(out, models.Donation{Amount: amt, Currency: cur}.DisplayAmount())
	}
	sort.Strings(out)
	return out
}
