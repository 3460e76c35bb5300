// Package tasks runs the site's periodic housekeeping: expired OAuth state,
// idle throttle buckets and the pending testimonial digest.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job runs every Interval until the runner stops.
type Job struct {
	Name     string
	Interval time.Duration
	// Deferred jobs first run one Interval after start. Jobs that send mail
	// use it so a restart does not resend.
	Deferred bool
	Run      func(ctx context.Context) error
}

type Runner struct {
	logger *zap.Logger
	jobs   []Job
	group  *errgroup.Group
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]time.Time // job name -> run start
}

func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger, active: map[string]time.Time{}}
}

// Register must be called before Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.group = &errgroup.Group{}
	for _, job := range r.jobs {
		r.group.Go(func() error {
			r.loop(ctx, job)
			return nil
		})
	}
	r.logger.Info("task runner started", zap.Int("jobs", len(r.jobs)))
}

// Stop cancels every job and waits for in-flight runs until ctx expires.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("task runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("task runner stop timed out", zap.Strings("still_running", r.Running()))
		return ctx.Err()
	}
}

// Running lists the jobs executing right now, sorted.
func (r *Runner) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for n := range r.active {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) loop(ctx context.Context, job Job) {
	if !job.Deferred {
		r.run(ctx, job)
	}
	t := time.NewTicker(job.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.run(ctx, job)
		}
	}
}

func (r *Runner) run(ctx context.Context, job Job) {
	start := time.Now()
	r.mu.Lock()
	r.active[job.Name] = start
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, job.Name)
		r.mu.Unlock()
	}()

	err := safeRun(ctx, job)
	log := r.logger.With(zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	switch {
	case err == nil:
		log.Debug("job done")
	case ctx.Err() != nil:
		log.Debug("job cancelled")
	default:
		log.Error("job failed", zap.Error(err))
	}
}

// safeRun turns a panic into an error so one bad run does not end the loop.
func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return job.Run(ctx)
}
