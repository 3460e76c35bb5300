// internal/app/store/settings/settingsstore.go

// Package settingsstore reads the site settings singleton in typed form for
// the page chrome. The singleton editor owns every write.
package settingsstore

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Where the site-settings singleton lives.
const (
	Collection = "siteSettings"
	ID         = "main"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Defaults is what a site that never saved its settings shows.
func Defaults() models.SiteSettings {
	return models.SiteSettings{ID: ID, SiteName: models.DefaultSiteName, FooterHTML: models.DefaultFooterHTML}
}

// Get returns the saved settings with blank name and footer replaced by
// the defaults. A missing document is not an error.
func (s *Store) Get(ctx context.Context) (models.SiteSettings, error) {
	out := Defaults()
	var saved models.SiteSettings
	err := s.c.FindOne(ctx, bson.M{"_id": ID}).Decode(&saved)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return out, nil
	case err != nil:
		return out, err
	}

	if strings.TrimSpace(saved.SiteName) == "" {
		saved.SiteName = out.SiteName
	}
	if strings.TrimSpace(saved.FooterHTML) == "" {
		saved.FooterHTML = out.FooterHTML
	}
	saved.ID = ID
	return saved, nil
}
