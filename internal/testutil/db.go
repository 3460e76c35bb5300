// Package testutil holds the shared fixtures for handler and store tests: a
// throwaway Mongo database per test, booted templates, and requests carrying
// a signed-in user and CSRF token.
package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GICESITE_TEST_MONGO_URI overrides the local default.
const defaultMongoURI = "mongodb://localhost:27017"

var (
	connectOnce sync.Once
	shared      *mongo.Client
	connectErr  error

	unsafeDBChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

func client() (*mongo.Client, error) {
	connectOnce.Do(func() {
		uri := os.Getenv("GICESITE_TEST_MONGO_URI")
		if uri == "" {
			uri = defaultMongoURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		shared, connectErr = mongo.Connect(ctx, options.Client().
			ApplyURI(uri).
			SetMaxPoolSize(200).
			SetServerSelectionTimeout(5*time.Second))
		if connectErr == nil {
			connectErr = shared.Ping(ctx, nil)
		}
	})
	return shared, connectErr
}

// SetupTestDB returns an empty database, named after the test, with the
// production indexes in place. It is dropped when the test ends. Tests are
// skipped when no MongoDB is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := client()
	if err != nil {
		t.Skipf("MongoDB not reachable: %v", err)
	}
	db := c.Database(dbName(t.Name()))

	ctx, cancel := TestContext()
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop %s: %v", db.Name(), err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop %s: %v", db.Name(), err)
		}
	})
	return db
}

// dbName fits Mongo's 63 byte limit. The hash keeps long subtest names that
// share a prefix apart.
func dbName(test string) string {
	h := fnv.New32a()
	h.Write([]byte(test))
	clean := unsafeDBChars.ReplaceAllString(test, "_")
	if len(clean) > 40 {
		clean = clean[:40]
	}
	return fmt.Sprintf("gicet_%s_%08x", clean, h.Sum32())
}

// TestContext bounds a test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
