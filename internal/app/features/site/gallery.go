// internal/app/features/site/gallery.go
package site

import (
	"context"
	"net/http"

	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

// NextCursorHeader carries the cursor for the following gallery page.
// It is empty on the last page.
const NextCursorHeader = "X-Next-Cursor"

// GalleryVM is the view model for the gallery page.
type GalleryVM struct {
	viewdata.BaseVM
	Items      []models.Document
	Category   string
	NextCursor string
}

func (h *Handler) galleryPage(ctx context.Context, category string, after *documentstore.Cursor) ([]models.Document, string, error) {
	docs, next, err := h.docs.Page(ctx, h.schema("gallery"), documentstore.PageQuery{
		After:    after,
		Limit:    h.pageSize,
		Field:    "categories",
		Category: category,
	})
	if err != nil {
		return nil, "", err
	}
	if next == nil {
		return docs, "", nil
	}
	return docs, next.Encode(), nil
}

// Gallery renders the first page; the browser fetches the rest from
// GalleryMore as the visitor scrolls.
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	vm := GalleryVM{BaseVM: viewdata.New(r), Category: query.Get(r, "category")}
	vm.Title = "Gallery"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var err error
	vm.Items, vm.NextCursor, err = h.galleryPage(ctx, vm.Category, nil)
	if err != nil {
		h.errLog.Log(r, "gallery first page", err)
		vm.ShowError(loadFailed)
	}
	templates.Render(w, r, "site/gallery", vm)
}

// GalleryMore returns the items after ?cursor= as an HTML fragment.
func (h *Handler) GalleryMore(w http.ResponseWriter, r *http.Request) {
	after, err := documentstore.DecodeCursor(query.Get(r, "cursor"))
	if err != nil || after == nil {
		http.Error(w, "invalid cursor", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, next, err := h.galleryPage(ctx, query.Get(r, "category"), after)
	if err != nil {
		h.errLog.Log(r, "gallery next page", err)
		http.Error(w, "could not load more images", http.StatusInternalServerError)
		return
	}

	w.Header().Set(NextCursorHeader, next)
	w.Header().Set("Cache-Control", "no-store")
	templates.RenderSnippet(w, "gallery_items", items)
}
