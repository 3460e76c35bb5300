package jsonutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]any{"order_id": "order_9", "amount": 50000})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "order_9", got["order_id"])
	assert.EqualValues(t, 50000, got["amount"])
}

func TestJSON_NilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusAccepted, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"error", func(w http.ResponseWriter) { Error(w, http.StatusTooManyRequests, "slow down") }, http.StatusTooManyRequests, "slow down"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid request.") }, http.StatusBadRequest, "Invalid request."},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "Please try again.") }, http.StatusInternalServerError, "Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, map[string]string{"error": tt.msg}, got)
		})
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, []string{"a"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["a"]`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	type link struct {
		URL string `json:"url"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"https://drive.google.com/file/d/abc/view"}`))
	var in link
	require.NoError(t, Decode(req, &in))
	assert.Equal(t, "https://drive.google.com/file/d/abc/view", in.URL)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":`))
	assert.Error(t, Decode(req, &in))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"a"} {"url":"b"}`))
	assert.True(t, errors.Is(Decode(req, &in), ErrTrailingData))
}

func TestDecode_BodyLimit(t *testing.T) {
	big := `{"url":"` + strings.Repeat("x", MaxBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var in struct {
		URL string `json:"url"`
	}
	assert.Error(t, Decode(req, &in))
}
