package content

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type stubUploader struct{ url string }

func (s stubUploader) Upload(_ context.Context, up *mediaupload.Upload) (mediaupload.Result, error) {
	if up.Empty() {
		return mediaupload.Cancelled, nil
	}
	return mediaupload.Result{Uploaded: true, URL: s.url}, nil
}

func setup(t *testing.T) (*Handler, *mongo.Database) {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(
		db,
		collections.Default(),
		mediaupload.NewAdapter(stubUploader{url: "https://media.example.org/new.jpg"}, mediaupload.LinkConverter{CDNHost: "cdn.example.org"}),
		errorsfeature.NewErrorLogger(zap.NewNop()),
		nil,
		zap.NewNop(),
	)
	return h, db
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, testutil.WithUser(req, testutil.EditorUser()))
	return rec
}

func post(h *Handler, target string, form url.Values) *httptest.ResponseRecorder {
	return serve(h, testutil.NewFormRequest(target, form))
}

func seed(t *testing.T, db *mongo.Database, collection string, vals collections.Values) models.Document {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	doc, err := documentstore.New(db).Create(ctx, collection, vals)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}

func reload(t *testing.T, db *mongo.Database, collection, id string) models.Document {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	doc, err := documentstore.New(db).Get(ctx, collection, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return doc
}

func count(t *testing.T, db *mongo.Database, collection string) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := documentstore.New(db).Count(ctx, collection)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

func TestCreate_WithShareLink(t *testing.T) {
	h, db := setup(t)

	rec := post(h, "/gallery/new", url.Values{
		"title":            {"Health camp"},
		"categories":       {"Health, Outreach"},
		"image_url_source": {"link"},
		"image_url_link":   {"https://drive.google.com/file/d/ABC123/view?usp=sharing"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/c/gallery" {
		t.Errorf("Location = %q, want /admin/c/gallery", loc)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	schema, _ := collections.Default().Collection("gallery")
	docs, err := documentstore.New(db).List(ctx, schema)
	if err != nil || len(docs) != 1 {
		t.Fatalf("List() = %d docs, err %v", len(docs), err)
	}
	if got := docs[0].String("image_url"); got != "https://cdn.example.org/d/ABC123" {
		t.Errorf("image_url = %q", got)
	}
	if got := docs[0].Strings("categories_ci"); len(got) != 2 || got[0] != "health" {
		t.Errorf("categories_ci = %v", got)
	}
}

func TestCreate_WithUpload(t *testing.T) {
	h, db := setup(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", "Classroom")
	_ = mw.WriteField("image_url_source", "upload")
	fw, _ := mw.CreateFormFile("image_url_file", "class.png")
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/gallery/new", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(h, testutil.WithCSRFToken(req))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body = %s", rec.Code, rec.Body.String())
	}
	if n := count(t, db, "gallery"); n != 1 {
		t.Fatalf("gallery count = %d, want 1", n)
	}
}

func TestCreate_RequiredImageMissingKeepsDraft(t *testing.T) {
	h, db := setup(t)

	rec := post(h, "/gallery/new", url.Values{"title": {"Unsaved title"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Image is required.") {
		t.Error("expected the missing image message")
	}
	if !strings.Contains(body, `value="Unsaved title"`) {
		t.Error("draft title was not kept")
	}
	if n := count(t, db, "gallery"); n != 0 {
		t.Errorf("gallery count = %d, want 0", n)
	}
}

func TestCreate_ValidationBeforeWrite(t *testing.T) {
	h, db := setup(t)

	rec := post(h, "/team/new", url.Values{"name": {"Asha"}, "email": {"not-an-email"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Position is required.") {
		t.Error("expected the first field error in the banner")
	}
	if n := count(t, db, "team"); n != 0 {
		t.Errorf("team count = %d, want 0", n)
	}
}

func TestCreate_InvalidLink(t *testing.T) {
	h, db := setup(t)

	rec := post(h, "/gallery/new", url.Values{
		"title":            {"Bad link"},
		"image_url_source": {"link"},
		"image_url_link":   {"https://example.com/photo.jpg"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not a file-sharing link") {
		t.Error("expected the invalid link message")
	}
	if n := count(t, db, "gallery"); n != 0 {
		t.Errorf("gallery count = %d, want 0", n)
	}
}

func TestUpdate_PartialKeepsOtherFields(t *testing.T) {
	h, db := setup(t)
	doc := seed(t, db, "news", collections.Values{
		"title":     "Old headline",
		"summary":   "Keep me",
		"published": true,
		"image_url": "https://media.example.org/old.jpg",
	})

	rec := post(h, "/news/"+doc.ID()+"/edit", url.Values{
		"title":   {"New headline"},
		"_fields": {"title"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body = %s", rec.Code, rec.Body.String())
	}

	got := reload(t, db, "news", doc.ID())
	if got.String("title") != "New headline" {
		t.Errorf("title = %q", got.String("title"))
	}
	if got.String("summary") != "Keep me" {
		t.Errorf("summary = %q, want it untouched", got.String("summary"))
	}
	if !got.Bool("published") {
		t.Error("published flipped although it was not on the form")
	}
	if got.String("image_url") != "https://media.example.org/old.jpg" {
		t.Errorf("image_url = %q, want it untouched", got.String("image_url"))
	}
}

func TestUpdate_UncheckedBoxClears(t *testing.T) {
	h, db := setup(t)
	doc := seed(t, db, "news", collections.Values{"title": "Story", "published": true})

	rec := post(h, "/news/"+doc.ID()+"/edit", url.Values{
		"title":   {"Story"},
		"_fields": {"title", "published"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if reload(t, db, "news", doc.ID()).Bool("published") {
		t.Error("published still true after unchecking")
	}
}

func TestUpdate_CancelledUploadKeepsImage(t *testing.T) {
	h, db := setup(t)
	doc := seed(t, db, "gallery", collections.Values{"title": "Kept", "image_url": "https://media.example.org/old.jpg"})

	rec := post(h, "/gallery/"+doc.ID()+"/edit", url.Values{
		"title":            {"Kept"},
		"image_url_source": {"upload"},
		"_fields":          {"title"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body = %s", rec.Code, rec.Body.String())
	}
	if got := reload(t, db, "gallery", doc.ID()).String("image_url"); got != "https://media.example.org/old.jpg" {
		t.Errorf("image_url = %q, want the stored image", got)
	}
}

func TestEditAndList(t *testing.T) {
	h, db := setup(t)
	doc := seed(t, db, "team", collections.Values{"name": "Ravi", "position": "Coordinator"})

	rec := serve(h, testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/team", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Coordinator") {
		t.Error("list is missing the summary column")
	}

	rec = serve(h, testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/team/"+doc.ID()+"/edit", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Ravi"`) {
		t.Error("edit form does not show the stored value")
	}
}

func TestNotFound(t *testing.T) {
	h, _ := setup(t)

	tests := []string{"/nope", "/nope/new", "/team/000000000000000000000000/edit"}
	for _, target := range tests {
		rec := serve(h, testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, target, nil)))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, rec.Code)
		}
	}
}

func TestDelete(t *testing.T) {
	h, db := setup(t)
	doc := seed(t, db, "benefits", collections.Values{"title": "Clean water"})

	rec := post(h, "/benefits/"+doc.ID()+"/delete", url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if n := count(t, db, "benefits"); n != 0 {
		t.Errorf("benefits count = %d, want 0", n)
	}
}

func TestSummarize(t *testing.T) {
	s, err := collections.Default().Collection("gallery")
	if err != nil {
		t.Fatal(err)
	}
	cols, rows := summarize(s, []models.Document{{
		"id":         "x1",
		"title":      "Camp",
		"categories": []string{"Health", "Youth"},
		"image_url":  "https://cdn.example.org/d/1",
	}})
	if len(cols) != 2 || cols[0] != "Title" {
		t.Errorf("columns = %v", cols)
	}
	if len(rows) != 1 || rows[0].Cells[1] != "Health, Youth" || rows[0].Thumb == "" {
		t.Errorf("rows = %+v", rows)
	}
}
