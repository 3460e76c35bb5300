package mediaupload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// DefaultMaxSize caps a single image upload.
const DefaultMaxSize = 10 << 20

// StorageUploader keeps images in WAFFLE file storage (local disk or
// S3/CloudFront) and serves them from the store's public URL.
type StorageUploader struct {
	store   storage.Store
	prefix  string
	maxSize int64
	now     func() time.Time
}

// NewStorageUploader returns an uploader writing under prefix (e.g. "images").
func NewStorageUploader(store storage.Store, prefix string) *StorageUploader {
	if prefix == "" {
		prefix = "images"
	}
	return &StorageUploader{
		store:   store,
		prefix:  strings.Trim(prefix, "/"),
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
}

// Upload implements ImageUploader.
func (s *StorageUploader) Upload(ctx context.Context, up *Upload) (Result, error) {
	if up.Empty() {
		return Cancelled, nil
	}
	if up.Size > s.maxSize {
		return Cancelled, ErrTooLarge
	}

	body, contentType, err := sniffImage(up)
	if err != nil {
		return Cancelled, err
	}

	// images/YYYY/MM/<uuid8><ext>; the client's filename never reaches the path.
	now := s.now().UTC()
	name := uuid.New().String()[:8] + imageTypes[contentType]
	path := fmt.Sprintf("%s/%04d/%02d/%s", s.prefix, now.Year(), now.Month(), name)

	if err := s.store.Put(ctx, path, body, &storage.PutOptions{ContentType: contentType}); err != nil {
		return Cancelled, fmt.Errorf("store image: %w", err)
	}
	return Result{Uploaded: true, URL: s.store.URL(path)}, nil
}

// imageTypes maps the accepted sniffed types to the extension they are
// stored under. SVG is left out because it can carry script.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// sniffImage checks the leading bytes are an accepted image type and returns
// a reader that still yields the whole file. The declared type is ignored.
func sniffImage(up *Upload) (io.Reader, string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", err
	}
	head = head[:n]
	ct := http.DetectContentType(head)
	if _, ok := imageTypes[ct]; !ok {
		return nil, "", ErrNotImage
	}
	return io.MultiReader(bytes.NewReader(head), up.Body), ct, nil
}
