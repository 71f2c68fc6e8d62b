package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/radar", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))
	rec := httptest.NewRecorder()
	h.HandleError(rec, req, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"validation", ErrValidation("limit", "must be at most 500"), http.StatusBadRequest, TypeValidation},
		{"invalid parameter", ErrInvalidParameter, http.StatusBadRequest, TypeValidation},
		{"api not found", NotFoundError("market copper"), http.StatusNotFound, TypeNotFound},
		{"snapshot", ErrSnapshotMissing, http.StatusServiceUnavailable, TypeSnapshot},
		{"app not found", NewNotFoundError("market"), http.StatusNotFound, TypeNotFound},
		{"app validation", NewAppValidationError("bad"), http.StatusBadRequest, TypeValidation},
		{"storage", fmt.Errorf("reload: %w", NewStorageError("read metrics", nil)), http.StatusServiceUnavailable, TypeSnapshot},
		{"cancelled", context.Canceled, http.StatusGatewayTimeout, TypeTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.typ, body["type"])
			assert.Equal(t, float64(tt.status), body["status"])
			assert.Equal(t, "req-1", body["trace_id"])
			assert.Equal(t, "/api/v1/radar", body["instance"])
		})
	}
}

func TestHandleError_Details(t *testing.T) {
	_, body := serve(t, NewValidationErrors([]ValidationError{
		{Field: "from", Message: "must be a date"},
		{Field: "limit", Message: "must be at least 0"},
	}))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	details, ok := body["details"].([]interface{})
	require.True(t, ok)
	assert.Len(t, details, 2)

	_, body = serve(t, fmt.Errorf("boom: secret path"))
	assert.NotContains(t, body["detail"], "secret")
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/radar", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}

func TestHandleError_Nil(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}
