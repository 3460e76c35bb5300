// internal/domain/models/sitesettings.go
package models

import "time"

// SiteSettings holds the site-wide identity shown in the header and footer.
// It lives in the siteSettings collection under the fixed _id "main" and is
// edited through the singleton editor like every other singleton config.
type SiteSettings struct {
	ID string `bson:"_id,omitempty" json:"id,omitempty"`

	SiteName   string `bson:"site_name" json:"site_name"`
	Tagline    string `bson:"tagline,omitempty" json:"tagline,omitempty"`
	LogoURL    string `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	Email      string `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string `bson:"address,omitempty" json:"address,omitempty"`
	FooterHTML string `bson:"footer_html,omitempty" json:"footer_html,omitempty"`

	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DefaultSiteName is used until the settings singleton has been saved.
const DefaultSiteName = "GICE Foundation"

// DefaultFooterHTML is the footer text used until one has been saved.
const DefaultFooterHTML = "Building brighter futures together."
