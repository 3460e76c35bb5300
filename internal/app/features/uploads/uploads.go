// internal/app/features/uploads/uploads.go
//
// Package uploads exposes the media upload adapter to the browser image
// widget as two JSON endpoints. Both answer with a mediaupload.Result;
// uploaded=false means the widget was closed without choosing anything.
package uploads

import (
	"context"
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	"github.com/dalemusser/gicesite/internal/app/system/jsonutil"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	images *mediaupload.Adapter
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

func NewHandler(images *mediaupload.Adapter, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{images: images, errLog: errLog, logger: logger}
}

// Routes is mounted at /admin/api behind the editor guard.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/uploads", h.Upload)
	r.Post("/links", h.Link)
	return r
}

// Upload stores the multipart "file" with the configured media host.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := mediaupload.ParseForm(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	file, closeFile, err := mediaupload.FromRequest(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	res, err := h.images.Acquire(ctx, mediaupload.Request{Source: mediaupload.SourceUpload, File: file})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonutil.OK(w, res)
}

type linkInput struct {
	Link string `json:"link"`
}

// Link converts a share link into a direct image URL. It accepts a JSON body
// {"link": "..."} or a form field named link.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	var in linkInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := jsonutil.Decode(r, &in); err != nil {
			jsonutil.BadRequest(w, "Invalid request.")
			return
		}
	} else {
		in.Link = r.FormValue("link")
	}

	res, err := h.images.Acquire(r.Context(), mediaupload.Request{Source: mediaupload.SourceLink, Link: in.Link})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonutil.OK(w, res)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mediaupload.ErrInvalidLink),
		errors.Is(err, mediaupload.ErrNotImage),
		errors.Is(err, mediaupload.ErrUnknownSource):
		jsonutil.Error(w, http.StatusUnprocessableEntity, mediaupload.Message(err))
	case errors.Is(err, mediaupload.ErrTooLarge):
		jsonutil.Error(w, http.StatusRequestEntityTooLarge, mediaupload.Message(err))
	default:
		h.errLog.Log(r, "image upload", err)
		jsonutil.Error(w, http.StatusBadGateway, mediaupload.Message(err))
	}
}
