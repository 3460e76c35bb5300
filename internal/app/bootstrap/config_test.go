package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:    "mongodb://localhost:27017",
		FormKey:     "f0rm-k3y-f0r-s1gned-intake-state-and-tickets",
		StorageType: "local",
		MediaHost:   MediaHostStorage,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"cloudinary complete", func(c *AppConfig) {
			c.MediaHost = MediaHostCloudinary
			c.CloudinaryCloudName = "gice"
			c.CloudinaryUploadPreset = "unsigned"
		}, ""},
		{"cloudinary without preset", func(c *AppConfig) {
			c.MediaHost = MediaHostCloudinary
			c.CloudinaryCloudName = "gice"
		}, "cloudinary_upload_preset"},
		{"unknown media host", func(c *AppConfig) { c.MediaHost = "ftp" }, "unknown media_host"},
		{"payment id alone", func(c *AppConfig) { c.PaymentKeyID = "rzp_live_x" }, "set together"},
		{"short form key", func(c *AppConfig) { c.FormKey = "short" }, "form_key"},
		{"bad audit mode", func(c *AppConfig) { c.AuditLogAdmin = "both" }, "audit_log_admin"},
		{"bad storage", func(c *AppConfig) { c.StorageType = "gcs" }, "storage_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(nil, cfg, zap.NewNop())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
