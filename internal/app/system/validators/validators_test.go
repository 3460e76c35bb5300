package validators

import (
	"errors"
	"testing"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for run := 1; run <= 2; run++ {
		if err := EnsureAll(ctx, db); err != nil {
			t.Fatalf("EnsureAll() run %d error = %v", run, err)
		}
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames() error = %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"adminUsers", "credentials", "testimonials", "donations", "oauth_states", "audit_logs", "gallery", "news", "operationsGallery"} {
		if !have[want] {
			t.Errorf("collection %s missing after EnsureAll", want)
		}
	}
}

func TestEnsureAll_RejectsBadRating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	_, err := db.Collection("testimonials").InsertOne(ctx, bson.M{
		"name": "Asha", "body": "Hi", "rating": 9, "pending": true,
	})
	if err == nil {
		t.Skip("server accepted the document; validators unsupported here")
	}
	var we mongo.WriteException
	if !errors.As(err, &we) {
		t.Errorf("InsertOne() error = %T %v, want WriteException", err, err)
	}
}

func TestSchemas(t *testing.T) {
	all := schemas(collections.Default())
	for _, name := range []string{"adminUsers", "credentials", "testimonials", "donations"} {
		js, ok := all[name]["$jsonSchema"].(bson.M)
		if !ok {
			t.Errorf("%s: no $jsonSchema", name)
			continue
		}
		if req, _ := js["required"].(bson.A); len(req) == 0 {
			t.Errorf("%s: no required fields", name)
		}
	}
	if s, ok := all["gallery"]; !ok || s != nil {
		t.Errorf("gallery should be created without a validator, got %v", s)
	}
}

func TestErrorClassifiers(t *testing.T) {
	if !alreadyExists(mongo.CommandError{Code: 48, Message: "Collection already exists. NS: x.y"}) {
		t.Error("code 48 should be already-exists")
	}
	if alreadyExists(errors.New("timeout")) {
		t.Error("timeout is not already-exists")
	}
	if !unsupported(mongo.CommandError{Code: 59, Message: "no such command: 'collMod'"}) {
		t.Error("code 59 should be unsupported")
	}
	if !unsupported(errors.New("Feature not implemented: collMod")) {
		t.Error("not implemented message should be unsupported")
	}
	if unsupported(mongo.CommandError{Code: 121, Message: "Document failed validation"}) {
		t.Error("validation failure is not unsupported")
	}
}
