// Package jsonutil writes the JSON bodies of the donation checkout, the
// image widget endpoints, the donations export and the health checks.
// Errors are always {"error": message}.
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBody caps what Decode will read. Checkout and link requests are a
// handful of short strings.
const MaxBody = 64 << 10

// ErrTrailingData is returned when a body holds more than one JSON value.
var ErrTrailingData = errors.New("jsonutil: unexpected data after JSON value")

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Error writes {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// InternalError hides the cause; log it before calling.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// Decode reads exactly one JSON value of at most MaxBody bytes into v.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}
