// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/gicesite/internal/app/resources"
	"github.com/dalemusser/gicesite/internal/app/store/oauthstate"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/tasks"
	"github.com/dalemusser/gicesite/internal/app/system/throttle"
	"github.com/dalemusser/gicesite/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It loads the shared templates and the timezone list, builds the public
// submit throttle, and starts the background task runner.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	if err := timezones.Load(); err != nil {
		logger.Error("failed to load timezone list", zap.Error(err))
		return err
	}

	submitLimiter = throttle.New(appCfg.SubmitRatePerMinute, appCfg.SubmitBurst)
	logger.Info("public submit throttle configured",
		zap.Float64("per_minute", appCfg.SubmitRatePerMinute),
		zap.Int("burst", appCfg.SubmitBurst),
	)

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// submitLimiter throttles public form posts per client IP. It is shared by
// the testimonial and donation routes and swept by a background job.
var submitLimiter *throttle.Limiter

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger))
	taskRunner.Register(tasks.ThrottleSweepJob(submitLimiter, 30*time.Minute, logger))

	// The digest only makes sense when someone can receive it.
	if appCfg.NotifyEmail != "" && deps.Mailer.Enabled() {
		taskRunner.Register(tasks.PendingDigestJob(
			testimonialstore.New(deps.MongoDatabase),
			deps.Mailer,
			tasks.DigestConfig{
				To:        appCfg.NotifyEmail,
				AppName:   deps.Mailer.FromName(),
				ReviewURL: reviewURL(appCfg.BaseURL),
			},
			logger,
		))
	}

	taskRunner.Start()
}

// reviewURL is where staff approve pending testimonials.
func reviewURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/admin/testimonials"
}
