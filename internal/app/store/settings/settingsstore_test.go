package settingsstore

import (
	"testing"

	singletonstore "github.com/dalemusser/gicesite/internal/app/store/singletons"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestGet_NeverSaved(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != Defaults() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
}

func TestGet_BlankFieldsFallBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := db.Collection(Collection).InsertOne(ctx, bson.M{"_id": ID, "site_name": "  ", "email": "hello@gice.org"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := New(db).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SiteName != models.DefaultSiteName || got.FooterHTML != models.DefaultFooterHTML {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.Email != "hello@gice.org" {
		t.Errorf("Email = %q", got.Email)
	}
}

func TestGet_ReadsSingletonEditorWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	def, err := collections.Default().Singleton("site-settings")
	if err != nil {
		t.Fatalf("Singleton() error = %v", err)
	}
	if def.Collection != Collection || def.ID != ID {
		t.Fatalf("site-settings lives at %s/%s, want %s/%s", def.Collection, def.ID, Collection, ID)
	}
	if _, err := singletonstore.New(db).Save(ctx, def, collections.Values{
		"site_name": "GICE Trust",
		"tagline":   "Learning for every child",
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := New(db).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SiteName != "GICE Trust" || got.Tagline != "Learning for every child" {
		t.Errorf("Get() = %+v", got)
	}
}
