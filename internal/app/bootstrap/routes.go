// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	adminusersfeature "github.com/dalemusser/gicesite/internal/app/features/adminusers"
	assignmentsfeature "github.com/dalemusser/gicesite/internal/app/features/assignments"
	auditlogfeature "github.com/dalemusser/gicesite/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/gicesite/internal/app/features/authgoogle"
	contentfeature "github.com/dalemusser/gicesite/internal/app/features/content"
	dashboardfeature "github.com/dalemusser/gicesite/internal/app/features/dashboard"
	donatefeature "github.com/dalemusser/gicesite/internal/app/features/donate"
	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	healthfeature "github.com/dalemusser/gicesite/internal/app/features/health"
	homefeature "github.com/dalemusser/gicesite/internal/app/features/home"
	loginfeature "github.com/dalemusser/gicesite/internal/app/features/login"
	logoutfeature "github.com/dalemusser/gicesite/internal/app/features/logout"
	profilefeature "github.com/dalemusser/gicesite/internal/app/features/profile"
	singletonsfeature "github.com/dalemusser/gicesite/internal/app/features/singletons"
	sitefeature "github.com/dalemusser/gicesite/internal/app/features/site"
	testimonialsfeature "github.com/dalemusser/gicesite/internal/app/features/testimonials"
	uploadsfeature "github.com/dalemusser/gicesite/internal/app/features/uploads"
	appresources "github.com/dalemusser/gicesite/internal/app/resources"
	adminuserstore "github.com/dalemusser/gicesite/internal/app/store/adminusers"
	"github.com/dalemusser/gicesite/internal/app/store/audit"
	"github.com/dalemusser/gicesite/internal/app/store/ratelimit"
	"github.com/dalemusser/gicesite/internal/app/store/sessions"
	"github.com/dalemusser/gicesite/internal/app/system/apicors"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/auth"
	"github.com/dalemusser/gicesite/internal/app/system/flash"
	"github.com/dalemusser/gicesite/internal/app/system/intake"
	"github.com/dalemusser/gicesite/internal/app/system/signin"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// The tree has three parts:
//   - the public site: pages, testimonials, donations (session optional)
//   - /admin: the dashboard CMS, session auth + role guard + CSRF
//   - /api/donations: read-only export, API key auth, no CSRF, permissive CORS
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the admin user on each request so role changes
	// and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(adminuserstore.NewFetcher(deps.MongoDatabase, logger))

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Site name and footer details come from the siteSettings singleton.
	viewdata.Init(deps.MongoDatabase)

	flashStore := flash.NewStore([]byte(appCfg.SessionKey), appCfg.SessionName+"-flash", secure, logger)
	flash.Init(flashStore)

	errLog := errorsfeature.NewErrorLogger(logger)

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Admin:   appCfg.AuditLogAdmin,
		Content: appCfg.AuditLogContent,
	})

	starter := signin.New(sessionMgr, sessions.New(deps.MongoDatabase), appCfg.SessionMaxAge, logger)

	appName := deps.Mailer.FromName()
	if appName == "" {
		appName = "GICE"
	}

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Uploads get the upload timeout plus headroom; everything else is far
	// quicker.
	r.Use(chimw.Timeout(requestTimeout(appCfg)))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Flash messages survive exactly one redirect.
	r.Use(flashStore.Middleware)

	r.Use(csrfMiddleware(appCfg, secure, logger))

	// ─────────────────────────────────────────────────────────────────────────────
	// Infrastructure
	// ─────────────────────────────────────────────────────────────────────────────

	var probes []healthfeature.Probe
	if deps.Mailer.Enabled() {
		probes = append(probes, smtpProbe(appCfg.MailSMTPHost, appCfg.MailSMTPPort))
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger, probes...)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /static/* serves files from disk, /assets/* the embedded bundle.
	r.Handle("/static/*", fileserver.Handler("/static", "static"))
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Uploaded images (local storage only)
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// ─────────────────────────────────────────────────────────────────────────────
	// Public site
	// ─────────────────────────────────────────────────────────────────────────────

	homeHandler := homefeature.NewHandler(deps.MongoDatabase, logger)
	r.Get("/", homeHandler.Index)

	siteHandler := sitefeature.NewHandler(deps.MongoDatabase, appCfg.GalleryPageSize, errLog, logger)
	r.Mount("/", sitefeature.Routes(siteHandler))

	testimonialsHandler := testimonialsfeature.NewHandler(
		deps.MongoDatabase,
		deps.Images,
		intake.NewCodec([]byte(appCfg.FormKey)),
		submitLimiter,
		deps.Mailer,
		testimonialsfeature.Notify{
			To:        appCfg.NotifyEmail,
			AppName:   appName,
			ReviewURL: reviewURL(appCfg.BaseURL),
		},
		errLog,
		auditLogger,
		logger,
	)
	r.Mount("/testimonials", testimonialsfeature.Routes(testimonialsHandler))

	donateHandler := donatefeature.NewHandler(
		deps.MongoDatabase,
		deps.Checkout,
		appCfg.PaymentCurrency,
		[]byte(appCfg.FormKey),
		submitLimiter,
		deps.Mailer,
		appName,
		errLog,
		auditLogger,
		logger,
	)
	r.Mount("/donate", donatefeature.Routes(donateHandler))

	// ─────────────────────────────────────────────────────────────────────────────
	// Authentication
	// ─────────────────────────────────────────────────────────────────────────────

	// Per-email lockout after repeated failures (nil if disabled)
	var lockout *ratelimit.Store
	if appCfg.RateLimitEnabled {
		lockout = ratelimit.New(
			deps.MongoDatabase,
			appCfg.RateLimitLoginAttempts,
			appCfg.RateLimitLoginWindow,
			appCfg.RateLimitLoginLockout,
		)
	}

	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, starter, lockout, appCfg.GoogleEnabled(), errLog, auditLogger, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(starter, auditLogger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Google OAuth (only mount if configured)
	if appCfg.GoogleEnabled() {
		googleHandler := authgooglefeature.NewHandler(
			deps.MongoDatabase,
			starter,
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL,
			errLog,
			auditLogger,
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// ─────────────────────────────────────────────────────────────────────────────
	// Dashboard (admin and editor)
	// ─────────────────────────────────────────────────────────────────────────────

	dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, deps.Registry, logger)
	contentHandler := contentfeature.NewHandler(deps.MongoDatabase, deps.Registry, deps.Images, errLog, auditLogger, logger)
	singletonsHandler := singletonsfeature.NewHandler(deps.MongoDatabase, deps.Registry, deps.Images, errLog, auditLogger, logger)
	assignmentsHandler := assignmentsfeature.NewHandler(deps.MongoDatabase, deps.Registry, errLog, auditLogger, logger)
	uploadsHandler := uploadsfeature.NewHandler(deps.Images, errLog, logger)
	adminUsersHandler := adminusersfeature.NewHandler(deps.MongoDatabase, deps.Mailer, appName, appCfg.BaseURL, errLog, auditLogger, logger)
	auditLogHandler := auditlogfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	profileHandler := profilefeature.NewHandler(deps.MongoDatabase, errLog, auditLogger, logger)

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleEditor))

		ar.Get("/", dashboardHandler.Show)
		ar.Mount("/c", contentfeature.Routes(contentHandler))
		ar.Mount("/s", singletonsfeature.Routes(singletonsHandler))
		ar.Mount("/sections", assignmentsfeature.Routes(assignmentsHandler))
		ar.Mount("/testimonials", testimonialsfeature.AdminRoutes(testimonialsHandler))
		ar.Mount("/api", uploadsfeature.Routes(uploadsHandler))
		ar.Mount("/profile", profilefeature.Routes(profileHandler))

		// Admin only
		ar.Group(func(gr chi.Router) {
			gr.Use(sessionMgr.RequireRole(models.RoleAdmin))
			gr.Mount("/donations", donatefeature.AdminRoutes(donateHandler))
			gr.Mount("/users", adminusersfeature.Routes(adminUsersHandler))
			gr.Mount("/audit", auditlogfeature.Routes(auditLogHandler))
		})
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Donations export API (API key)
	// ─────────────────────────────────────────────────────────────────────────────

	if appCfg.APIKey != "" {
		r.Route("/api/donations", func(ar chi.Router) {
			ar.Use(apicors.Middleware())
			ar.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
			ar.Mount("/", donatefeature.APIRoutes(donateHandler))
		})
	}

	// 404 catch-all for unmatched routes; chi hands it down to mounted routers.
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}

// requestTimeout bounds every request, leaving room for the slowest upload.
func requestTimeout(appCfg AppConfig) time.Duration {
	d := 30 * time.Second
	if up := appCfg.TimeoutUpload + 15*time.Second; up > d {
		d = up
	}
	return d
}

// csrfMiddleware protects every form post. The API key routes are exempt;
// the donation fetch calls send the token in X-CSRF-Token.
// Cookie name is "gicesite_csrf" to avoid collisions with other services on
// the same domain.
func csrfMiddleware(appCfg AppConfig, secure bool, logger *zap.Logger) func(http.Handler) http.Handler {
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("gicesite_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	protect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, "/api/") {
				next.ServeHTTP(w, req)
				return
			}
			protected.ServeHTTP(w, req)
		})
	}
}

// smtpProbe reports whether the mail relay accepts connections.
func smtpProbe(host string, port int) healthfeature.Probe {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return healthfeature.Probe{
		Name: "smtp",
		Check: func(ctx context.Context) error {
			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}
}
