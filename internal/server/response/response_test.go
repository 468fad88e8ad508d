package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]int{"sessions": 2})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := decode(t, w)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"sessions": float64(2)}, resp.Data)
}

func TestFail(t *testing.T) {
	resp := Fail("CODE", "message", "details")
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, Error{Code: "CODE", Message: "message", Details: "details"}, *resp.Error)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "m", "d") }, http.StatusBadRequest, "BAD_REQUEST"},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "m", "d") }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "m", "d") }, http.StatusNotFound, "NOT_FOUND"},
		{"method", func(w http.ResponseWriter) { MethodNotAllowed(w, "PUT") }, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "m", "d") }, http.StatusConflict, "CONFLICT"},
		{"rate limited", func(w http.ResponseWriter) { RateLimited(w, "slow down") }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, fmt.Errorf("boom")) }, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unavailable", func(w http.ResponseWriter) { ServiceUnavailable(w, "m") }, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"timeout", func(w http.ResponseWriter) { GatewayTimeout(w, "m") }, http.StatusGatewayTimeout, "TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	InternalError(w, fmt.Errorf("dsn=postgres://secret"))
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errors.NewNotFoundError("session", "s1"), http.StatusNotFound},
		{"validation", errors.NewValidationError("id", "", "empty"), http.StatusBadRequest},
		{"duplicate", errors.NewDuplicateError("click", "mouse", "plugin"), http.StatusConflict},
		{"timeout", errors.NewTimeoutError("getZoom", time.Second, "no answer"), http.StatusGatewayTimeout},
		{"not connected", fmt.Errorf("call getZoom: %w", errors.ErrNotConnected), http.StatusServiceUnavailable},
		{"wrapped not found", fmt.Errorf("load: %w", errors.NewNotFoundError("snapshot", "s2")), http.StatusNotFound},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
