package documentstore

import (
	"testing"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func schema(t *testing.T, name string) *collections.Schema {
	t.Helper()
	s, err := collections.Default().Collection(name)
	if err != nil {
		t.Fatalf("Collection(%q) error = %v", name, err)
	}
	return s
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "services", collections.Values{
		"title":       "Tutoring",
		"description": "After-school support",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID() == "" {
		t.Fatal("Create() did not attach id")
	}

	got, err := store.Get(ctx, "services", created.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.String("title") != "Tutoring" {
		t.Errorf("title = %q, want %q", got.String("title"), "Tutoring")
	}
	if got.Time("created_at").IsZero() || got.Time("updated_at").IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestStore_Get_StringKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := db.Collection("team").InsertOne(ctx, bson.M{"_id": "founder", "name": "R. Iyer"}); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	got, err := store.Get(ctx, "team", "founder")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID() != "founder" {
		t.Errorf("ID() = %q, want %q", got.ID(), "founder")
	}
}

func TestStore_Update_PreservesUneditedFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, "gallery", collections.Values{
		"title":       "Harvest day",
		"description": "Village farm visit",
		"image_url":   "https://cdn.example.org/harvest.jpg",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// A field the editor schema does not know about.
	if _, err := db.Collection("gallery").UpdateOne(ctx, bson.M{"_id": created["_id"]}, bson.M{"$set": bson.M{"legacy_note": "keep me"}}); err != nil {
		t.Fatalf("seed legacy field error = %v", err)
	}

	if err := store.Update(ctx, "gallery", created.ID(), collections.Values{"title": "Harvest festival"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Get(ctx, "gallery", created.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.String("title") != "Harvest festival" {
		t.Errorf("title = %q, want updated value", got.String("title"))
	}
	if got.String("image_url") != "https://cdn.example.org/harvest.jpg" {
		t.Errorf("image_url = %q, want original", got.String("image_url"))
	}
	if got.String("description") != "Village farm visit" {
		t.Errorf("description = %q, want original", got.String("description"))
	}
	if got.String("legacy_note") != "keep me" {
		t.Errorf("legacy_note = %q, want original", got.String("legacy_note"))
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Update(ctx, "gallery", primitive.NewObjectID().Hex(), collections.Values{"title": "x"})
	if err != ErrNotFound {
		t.Errorf("Update() error = %v, want %v", err, ErrNotFound)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, "benefits", collections.Values{"title": "Meals"})
	n, err := store.Delete(ctx, "benefits", created.ID())
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() = %d, want 1", n)
	}
	if _, err := store.Get(ctx, "benefits", created.ID()); err != mongo.ErrNoDocuments {
		t.Errorf("Get() after delete error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_List_SortedBySchema(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, v := range []struct {
		title string
		order int64
	}{{"Third", 3}, {"First", 1}, {"Second", 2}} {
		if _, err := store.Create(ctx, "services", collections.Values{"title": v.title, "order": v.order}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	docs, err := store.List(ctx, schema(t, "services"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"First", "Second", "Third"}
	if len(docs) != len(want) {
		t.Fatalf("List() returned %d docs, want %d", len(docs), len(want))
	}
	for i, d := range docs {
		if d.String("title") != want[i] {
			t.Errorf("docs[%d].title = %q, want %q", i, d.String("title"), want[i])
		}
	}
}

func TestStore_ListByCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	form := func(title, cats string) collections.Values {
		vals, errs := schema(t, "gallery").FieldSet().Draft(map[string][]string{
			"title":      {title},
			"categories": {cats},
		})
		delete(errs, "image_url") // image is resolved separately
		if len(errs) > 0 {
			t.Fatalf("Draft() errors = %v", errs)
		}
		vals["image_url"] = "https://cdn.example.org/" + title + ".jpg"
		return vals
	}
	if _, err := store.Create(ctx, "gallery", form("a", "Education, Health")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, "gallery", form("b", "agriculture")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// Written before categories_ci existed, with a single string tag.
	if _, err := db.Collection("gallery").InsertOne(ctx, bson.M{
		"title": "legacy", "categories": " EDUCATION ", "created_at": time.Now().UTC(),
	}); err != nil {
		t.Fatalf("insert legacy error = %v", err)
	}

	docs, err := store.ListByCategory(ctx, schema(t, "gallery"), "categories", "  education")
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	got := map[string]bool{}
	for _, d := range docs {
		got[d.String("title")] = true
	}
	if len(got) != 2 || !got["a"] || !got["legacy"] {
		t.Errorf("ListByCategory() titles = %v, want a and legacy", got)
	}
}

func TestStore_Page(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Two items share a timestamp so the _id tiebreak is exercised.
	stamps := []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
	for i, ts := range stamps {
		if _, err := db.Collection("gallery").InsertOne(ctx, bson.M{
			"_id":        primitive.NewObjectID(),
			"title":      string(rune('A' + i)),
			"created_at": ts,
		}); err != nil {
			t.Fatalf("insert error = %v", err)
		}
	}

	s := schema(t, "gallery")
	seen := map[string]bool{}
	var after *Cursor
	pages := 0
	for {
		docs, next, err := store.Page(ctx, s, PageQuery{After: after, Limit: 2})
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		pages++
		for _, d := range docs {
			if seen[d.ID()] {
				t.Fatalf("document %s returned twice", d.ID())
			}
			seen[d.ID()] = true
		}
		if next == nil {
			break
		}
		// Round-trip through the wire form like a browser would.
		after, err = DecodeCursor(next.Encode())
		if err != nil {
			t.Fatalf("DecodeCursor() error = %v", err)
		}
		if pages > 5 {
			t.Fatal("paging did not terminate")
		}
	}
	if len(seen) != len(stamps) {
		t.Errorf("paged %d documents, want %d", len(seen), len(stamps))
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
}

func TestStore_PageCategoryKeepsLegacy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Newest first. The legacy misses make the second page take two queries.
	docs := []bson.M{
		{"title": "m2", "categories": bson.A{"Education"}, "categories_ci": bson.A{"education"}},
		{"title": "legacy-hit", "categories": " EDUCATION "},
		{"title": "m1", "categories": bson.A{"Education"}, "categories_ci": bson.A{"education"}},
		{"title": "legacy-miss-3", "categories": "health"},
		{"title": "legacy-miss-2", "categories": "health"},
		{"title": "legacy-miss-1", "categories": bson.A{"farming"}},
		{"title": "other", "categories": bson.A{"Health"}, "categories_ci": bson.A{"health"}},
	}
	for i, d := range docs {
		d["created_at"] = base.Add(time.Duration(len(docs)-i) * time.Minute)
		if _, err := db.Collection("gallery").InsertOne(ctx, d); err != nil {
			t.Fatalf("insert error = %v", err)
		}
	}

	s := schema(t, "gallery")
	titles := func(ds []models.Document) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.String("title"))
		}
		return out
	}

	first, next, err := store.Page(ctx, s, PageQuery{Limit: 2, Field: "categories", Category: "education"})
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if got := titles(first); len(got) != 2 || got[0] != "m2" || got[1] != "legacy-hit" {
		t.Errorf("first page = %v, want [m2 legacy-hit]", got)
	}
	if next == nil {
		t.Fatal("first page should have a next cursor")
	}

	second, next, err := store.Page(ctx, s, PageQuery{After: next, Limit: 2, Field: "categories", Category: " Education"})
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if got := titles(second); len(got) != 1 || got[0] != "m1" {
		t.Errorf("second page = %v, want [m1]", got)
	}
	if next != nil {
		t.Errorf("second page cursor = %+v, want nil", next)
	}
}

func TestDecodeCursor(t *testing.T) {
	c, err := DecodeCursor("")
	if err != nil || c != nil {
		t.Errorf("DecodeCursor(\"\") = %v, %v; want nil, nil", c, err)
	}
	if _, err := DecodeCursor("not*base64"); err != ErrBadCursor {
		t.Errorf("DecodeCursor(garbage) error = %v, want %v", err, ErrBadCursor)
	}

	orig := Cursor{CreatedAt: time.UnixMilli(1700000000123).UTC(), ID: primitive.NewObjectID()}
	got, err := DecodeCursor(orig.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if !got.CreatedAt.Equal(orig.CreatedAt) || got.ID != orig.ID {
		t.Errorf("DecodeCursor() = %+v, want %+v", got, orig)
	}
}
