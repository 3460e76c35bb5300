// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "GICESITE"

// Media hosts accepted by media_host.
const (
	MediaHostStorage    = "storage"
	MediaHostCloudinary = "cloudinary"
)

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: GICESITE_MONGO_URI, GICESITE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "gicesite", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "gicesite-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	// Sign-in lockout
	{Name: "rate_limit_enabled", Default: true, Desc: "Lock an email out after repeated failed sign-ins"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed sign-ins before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed sign-ins"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},
	{Name: "form_key", Default: "dev-only-form-key-please-change-0123456789", Desc: "Signing key for testimonial intake state and donation tickets"},
	{Name: "api_key", Default: "", Desc: "Bearer key for the read-only donations API (empty disables it)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Media host
	{Name: "media_host", Default: MediaHostStorage, Desc: "Where uploaded images go: 'storage' or 'cloudinary'"},
	{Name: "cloudinary_cloud_name", Default: "", Desc: "Cloudinary cloud name"},
	{Name: "cloudinary_upload_preset", Default: "", Desc: "Cloudinary unsigned upload preset"},
	{Name: "cloudinary_folder", Default: "gicesite", Desc: "Cloudinary folder for uploads"},
	{Name: "link_cdn_host", Default: "", Desc: "Host that share links are rewritten to (blank uses the default)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@example.org", Desc: "From email address"},
	{Name: "mail_from_name", Default: "GICE", Desc: "From display name"},
	{Name: "notify_email", Default: "", Desc: "Staff inbox for testimonial notices and the daily digest"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL for email links and OAuth redirects"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_content", Default: "all", Desc: "Content event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// First admin
	{Name: "seed_admin_email", Default: "", Desc: "Email of the first admin, created when no active admin exists"},
	{Name: "seed_admin_name", Default: "Administrator", Desc: "Name of the first admin"},
	{Name: "seed_admin_password", Default: "", Desc: "Initial password of the first admin"},

	// Payments
	{Name: "payment_key_id", Default: "", Desc: "Payment gateway key id (empty disables donations)"},
	{Name: "payment_key_secret", Default: "", Desc: "Payment gateway key secret"},
	{Name: "payment_currency", Default: "INR", Desc: "ISO currency for donations"},

	// Public write throttle
	{Name: "submit_rate_per_minute", Default: 6, Desc: "Public form submissions allowed per IP per minute"},
	{Name: "submit_burst", Default: 3, Desc: "Public form submissions allowed in a burst"},

	{Name: "gallery_page_size", Default: 12, Desc: "Gallery items per page"},

	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document DB calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list queries and multi-step writes"},
	{Name: "timeout_upload", Default: "60s", Desc: "Timeout for calls to the media host"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// WAFFLE_* and GICESITE_* environment variables and flags, with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),

		CSRFKey: appValues.String("csrf_key"),
		FormKey: appValues.String("form_key"),
		APIKey:  appValues.String("api_key"),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		MediaHost:              appValues.String("media_host"),
		CloudinaryCloudName:    appValues.String("cloudinary_cloud_name"),
		CloudinaryUploadPreset: appValues.String("cloudinary_upload_preset"),
		CloudinaryFolder:       appValues.String("cloudinary_folder"),
		LinkCDNHost:            appValues.String("link_cdn_host"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		NotifyEmail:  appValues.String("notify_email"),

		BaseURL: appValues.String("base_url"),

		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogAdmin:   appValues.String("audit_log_admin"),
		AuditLogContent: appValues.String("audit_log_content"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminName:     appValues.String("seed_admin_name"),
		SeedAdminPassword: appValues.String("seed_admin_password"),

		PaymentKeyID:     appValues.String("payment_key_id"),
		PaymentKeySecret: appValues.String("payment_key_secret"),
		PaymentCurrency:  appValues.String("payment_currency"),

		SubmitRatePerMinute: float64(appValues.Int("submit_rate_per_minute")),
		SubmitBurst:         appValues.Int("submit_burst"),

		GalleryPageSize: appValues.Int("gallery_page_size"),

		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutUpload: appValues.Duration("timeout_upload", timeouts.DefaultUpload),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if err := validateMedia(appCfg); err != nil {
		logger.Error("invalid media configuration", zap.Error(err))
		return err
	}
	if (appCfg.PaymentKeyID == "") != (appCfg.PaymentKeySecret == "") {
		return errors.New("payment_key_id and payment_key_secret must be set together")
	}
	if len(appCfg.FormKey) < 32 {
		return errors.New("form_key must be at least 32 characters")
	}
	for key, mode := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_admin":   appCfg.AuditLogAdmin,
		"audit_log_content": appCfg.AuditLogContent,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s: unknown destination %q (want all, db, log or off)", key, mode)
		}
	}
	switch appCfg.StorageType {
	case "", "local", "s3":
	default:
		return fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
	}
	return nil
}

func validateMedia(appCfg AppConfig) error {
	switch appCfg.MediaHost {
	case MediaHostStorage, "":
		return nil
	case MediaHostCloudinary:
		if appCfg.CloudinaryCloudName == "" || appCfg.CloudinaryUploadPreset == "" {
			return errors.New("media_host cloudinary needs cloudinary_cloud_name and cloudinary_upload_preset")
		}
		return nil
	default:
		return fmt.Errorf("unknown media_host %q", appCfg.MediaHost)
	}
}
