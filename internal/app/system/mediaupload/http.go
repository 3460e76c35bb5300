package mediaupload

import (
	"context"
	"errors"
	"net/http"
)

// formMemory is how much of a multipart body is kept in memory; the rest
// spills to temporary files.
const formMemory = 8 << 20

// ParseForm parses a multipart or urlencoded body, capping its size a little
// above DefaultMaxSize so an oversized photo fails early.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxSize+(1<<20))
	err := r.ParseMultipartForm(formMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return ErrTooLarge
	}
	return err
}

// FromRequest reads the multipart file in field. A missing file yields a nil
// Upload and no error, as does a request that is not multipart. The returned
// close func is always safe to call.
func FromRequest(r *http.Request, field string) (*Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	up := &Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return up, func() { _ = file.Close() }, nil
}

// AcquireField resolves the image inputs an editor form renders for key:
// <key>_source, <key>_file and <key>_link.
func (a *Adapter) AcquireField(ctx context.Context, r *http.Request, key string) (Result, error) {
	src, err := ParseSource(r.FormValue(key + "_source"))
	if err != nil {
		return Cancelled, err
	}
	file, closeFile, err := FromRequest(r, key+"_file")
	if err != nil {
		return Cancelled, err
	}
	defer closeFile()
	return a.Acquire(ctx, Request{Source: src, File: file, Link: r.FormValue(key + "_link")})
}

// Message turns an acquisition error into banner text for staff and visitors.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidLink):
		return "That link is not a file-sharing link we recognise. Share the file publicly and paste its link."
	case errors.Is(err, ErrNotImage):
		return "That file is not an image."
	case errors.Is(err, ErrTooLarge):
		return "That image is too large."
	case errors.Is(err, ErrUnknownSource):
		return "Choose whether to upload a file or paste a link."
	default:
		return "The image could not be uploaded. Please try again."
	}
}
