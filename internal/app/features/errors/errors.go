// internal/app/features/errors/errors.go

// Package errors renders the site's error pages and logs handler failures
// with the request they belong to.
package errors

import (
	"net/http"

	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures with the method, path and request id.
type ErrorLogger struct {
	logger *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

func (e *ErrorLogger) Log(r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	if id := chimw.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	e.logger.Error(msg, fields...)
}

type PageVM struct {
	viewdata.BaseVM
	Message string
}

var pages = map[int]struct{ title, message string }{
	http.StatusUnauthorized:        {"Sign In Required", "Please sign in to continue."},
	http.StatusForbidden:           {"Access Denied", "Your account cannot open this page."},
	http.StatusNotFound:            {"Not Found", "We could not find that page."},
	http.StatusServiceUnavailable:  {"Temporarily Unavailable", "This part of the site is not available right now. Please try again later."},
	http.StatusInternalServerError: {"Server Error", "Something went wrong on our side. Please try again."},
}

// Page writes status and the matching error page. Codes without their own
// wording get the server error text.
func Page(w http.ResponseWriter, r *http.Request, status int) {
	p, ok := pages[status]
	if !ok {
		p = pages[http.StatusInternalServerError]
	}
	vm := PageVM{BaseVM: viewdata.New(r), Message: p.message}
	vm.Title = p.title
	w.WriteHeader(status)
	templates.Render(w, r, "errors/page", vm)
}

// Handler exposes the pages the router links to directly.
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	Page(w, r, http.StatusForbidden)
}

func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	Page(w, r, http.StatusUnauthorized)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Page(w, r, http.StatusNotFound)
}
