// internal/app/features/health/health.go

// Package health serves liveness, readiness and dependency checks for load
// balancers and uptime monitors.
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/gicesite/internal/app/system/jsonutil"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Probe checks one dependency. Each run gets the ping timeout.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// MongoProbe pings the primary.
func MongoProbe(client *mongo.Client) Probe {
	return Probe{Name: "mongodb", Check: func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}}
}

// Handler answers the probe endpoints. Only the database decides
// readiness; the other probes can degrade /health and nothing else.
type Handler struct {
	db     Probe
	extra  []Probe
	logger *zap.Logger
}

func NewHandler(client *mongo.Client, logger *zap.Logger, extra ...Probe) *Handler {
	return &Handler{db: MongoProbe(client), extra: extra, logger: logger}
}

// Response is the /health body.
type Response struct {
	Status   string            `json:"status"` // ok or degraded
	Services map[string]string `json:"services,omitempty"`
}

// Routes mounts at /health.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the short probe paths orchestrators expect.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) run(ctx context.Context, p Probe) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	err := p.Check(ctx)
	if err != nil {
		h.logger.Warn("health probe failed", zap.String("probe", p.Name), zap.Error(err))
	}
	return err
}

// Check runs every probe at once and reports each one.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	probes := append([]Probe{h.db}, h.extra...)
	failed := make([]bool, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			failed[i] = h.run(r.Context(), p) != nil
			return nil
		})
	}
	_ = g.Wait()

	resp := Response{Status: "ok", Services: make(map[string]string, len(probes))}
	for i, p := range probes {
		if failed[i] {
			resp.Status = "degraded"
			resp.Services[p.Name] = "unavailable"
			continue
		}
		resp.Services[p.Name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, code, resp)
}

// Ready reports whether the database answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.run(r.Context(), h.db) != nil {
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live answers as long as the process can serve.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
