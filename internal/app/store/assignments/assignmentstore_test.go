package assignmentstore

import (
	"testing"

	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
)

func TestStore_Assign_CopiesAndSurvivesSourceDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	docs := documentstore.New(db)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	src, err := docs.Create(ctx, "gallery", collections.Values{
		"title":     "Solar pump install",
		"image_url": "https://cdn.example.org/pump.jpg",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a, err := store.Assign(ctx, "operationsGallery", "  Water   Projects ", src)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if a.Category != "Water Projects" {
		t.Errorf("Category = %q, want %q", a.Category, "Water Projects")
	}
	if a.SourceID != src.ID() {
		t.Errorf("SourceID = %q, want %q", a.SourceID, src.ID())
	}

	// Editing and then deleting the source leaves the copy as it was.
	if err := docs.Update(ctx, "gallery", src.ID(), collections.Values{"image_url": "https://cdn.example.org/other.jpg"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := docs.Delete(ctx, "gallery", src.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	list, err := store.List(ctx, "operationsGallery", "water projects")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() = %d items, want 1", len(list))
	}
	if list[0].ImageURL != "https://cdn.example.org/pump.jpg" || list[0].Title != "Solar pump install" {
		t.Errorf("copy changed: %+v", list[0])
	}
}

func TestStore_Assign_NoImage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Assign(ctx, "careersGallery", "Interns", models.Document{"id": "x", "title": "No picture"})
	if err != ErrNoImage {
		t.Errorf("Assign() error = %v, want %v", err, ErrNoImage)
	}
}

func TestStore_ListCategoriesAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	src := models.Document{"id": "g1", "title": "T", "image_url": "https://cdn.example.org/t.jpg"}
	a1, _ := store.Assign(ctx, "careersGallery", "Interns", src)
	_, _ = store.Assign(ctx, "careersGallery", "Staff", src)

	all, err := store.List(ctx, "careersGallery", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() = %d items, want 2", len(all))
	}

	cats, err := store.Categories(ctx, "careersGallery")
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 2 {
		t.Errorf("Categories() = %v, want 2 labels", cats)
	}

	n, err := store.Delete(ctx, "careersGallery", a1.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete() = %d, %v", n, err)
	}
	interns, _ := store.List(ctx, "careersGallery", "INTERNS")
	if len(interns) != 0 {
		t.Errorf("List(interns) after delete = %d items, want 0", len(interns))
	}
}
