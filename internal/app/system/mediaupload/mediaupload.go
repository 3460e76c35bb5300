// Package mediaupload acquires image URLs for content documents.
//
// An image reaches a document in one of two ways: a file sent to the media
// host (ImageUploader), or a pasted file-sharing link rewritten into a direct
// image URL (LinkConverter). Either way the caller gets a Result, and only a
// Result with Uploaded set may be written to the database. A cancelled or
// failed attempt leaves the stored image untouched.
package mediaupload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Upload is one file handed to an ImageUploader.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Empty reports whether there is nothing to upload. An empty upload is how a
// closed or cancelled picker arrives at the server.
func (u *Upload) Empty() bool {
	return u == nil || u.Body == nil || u.Size == 0
}

// Result is the outcome of an acquisition attempt.
type Result struct {
	Uploaded bool   `json:"uploaded"`
	URL      string `json:"url,omitempty"`
}

// Cancelled is the Result for an attempt that produced no image.
var Cancelled = Result{}

// ImageUploader stores an image with a media host and returns its public URL.
// An empty upload must resolve to Cancelled with a nil error.
type ImageUploader interface {
	Upload(ctx context.Context, up *Upload) (Result, error)
}

var (
	// ErrInvalidLink is returned for a pasted link that matches neither
	// known share-link shape.
	ErrInvalidLink = errors.New("link is not a recognised file-sharing link")
	// ErrNotImage is returned when the uploaded bytes are not an image.
	ErrNotImage = errors.New("file is not an image")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("file is too large")
	// ErrUnknownSource is returned for an image_source value we do not handle.
	ErrUnknownSource = errors.New("unknown image source")
)

// Source selects how an image is acquired.
type Source string

const (
	// SourceAuto picks upload when a file was sent, link when a link was
	// pasted, and no change otherwise.
	SourceAuto   Source = ""
	SourceUpload Source = "upload"
	SourceLink   Source = "link"
)

// ParseSource normalizes a form value into a Source.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceAuto, SourceUpload, SourceLink:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Request describes one acquisition attempt.
type Request struct {
	Source Source
	File   *Upload
	Link   string
}

// Adapter combines the two acquisition modes behind one call.
type Adapter struct {
	Uploader ImageUploader
	Links    LinkConverter
}

// NewAdapter builds an Adapter.
func NewAdapter(up ImageUploader, links LinkConverter) *Adapter {
	return &Adapter{Uploader: up, Links: links}
}

// Acquire resolves req into a Result. A Result without Uploaded means
// "keep whatever image is stored now".
func (a *Adapter) Acquire(ctx context.Context, req Request) (Result, error) {
	link := strings.TrimSpace(req.Link)

	src := req.Source
	if src == SourceAuto {
		switch {
		case !req.File.Empty():
			src = SourceUpload
		case link != "":
			src = SourceLink
		default:
			return Cancelled, nil
		}
	}

	switch src {
	case SourceUpload:
		if req.File.Empty() {
			return Cancelled, nil
		}
		if a.Uploader == nil {
			return Cancelled, errors.New("no media host configured")
		}
		res, err := a.Uploader.Upload(ctx, req.File)
		if err != nil {
			return Cancelled, err
		}
		if !res.Uploaded || res.URL == "" {
			return Cancelled, nil
		}
		return res, nil
	case SourceLink:
		if link == "" {
			return Cancelled, nil
		}
		u, err := a.Links.Convert(link)
		if err != nil {
			return Cancelled, err
		}
		return Result{Uploaded: true, URL: u}, nil
	default:
		return Cancelled, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
}
