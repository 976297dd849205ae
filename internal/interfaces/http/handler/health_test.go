package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler_Live(t *testing.T) {
	w := serveHealth(NewHealthHandler("1.2.0", nil), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.0"}`, w.Body.String())
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	tests := []struct {
		name       string
		checks     map[string]ReadinessCheck
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]ReadinessCheck{"database": ok, "redis": ok},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:       "redis down",
			checks:     map[string]ReadinessCheck{"database": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "ok", "redis": "unavailable"},
		},
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveHealth(NewHealthHandler("dev", tt.checks), "/ready")

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantChecks, body.Checks)
			assert.NotContains(t, w.Body.String(), "refused")
		})
	}
}
