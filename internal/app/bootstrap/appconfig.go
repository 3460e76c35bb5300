// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds gicesite's own configuration, loaded in LoadConfig from
// config files, GICESITE_* environment variables and flags.
//
// WAFFLE's CoreConfig covers the framework side (ports, TLS, logging,
// CORS, body limits, DB timeouts). Everything the site and the dashboard
// need lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: gicesite-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// Sign-in lockout, per email
	RateLimitEnabled       bool
	RateLimitLoginAttempts int           // failures before lockout (default: 5)
	RateLimitLoginWindow   time.Duration // window the failures are counted in (default: 15m)
	RateLimitLoginLockout  time.Duration // how long the lockout lasts (default: 15m)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// FormKey signs the testimonial intake state and donation tickets.
	FormKey string

	// APIKey enables the read-only /api/donations export. Empty disables it.
	APIKey string

	// File storage configuration, used by the "storage" media host
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string

	// Media host for uploaded images: "storage" or "cloudinary"
	MediaHost              string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	CloudinaryFolder       string
	LinkCDNHost            string // host share links are rewritten to (https://<host>/d/<id>)

	// Email/SMTP configuration
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string
	NotifyEmail  string // staff inbox for new testimonials and the daily digest

	// Base URL for links in emails and the OAuth redirect
	BaseURL string // e.g., "https://gice.example.org" or "http://localhost:8080"

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAuth    string
	AuditLogAdmin   string
	AuditLogContent string

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// First admin, created when no active admin exists
	SeedAdminEmail    string
	SeedAdminName     string
	SeedAdminPassword string

	// Payment gateway; donations are disabled without both keys
	PaymentKeyID     string
	PaymentKeySecret string
	PaymentCurrency  string

	// Public write throttle, per client IP
	SubmitRatePerMinute float64
	SubmitBurst         int

	GalleryPageSize int

	// Timeouts for DB calls, see system/timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutUpload time.Duration
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// PaymentsEnabled reports whether the payment gateway is configured.
func (c AppConfig) PaymentsEnabled() bool {
	return c.PaymentKeyID != "" && c.PaymentKeySecret != ""
}
