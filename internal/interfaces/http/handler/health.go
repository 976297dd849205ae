package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether one dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	version string
	checks  map[string]ReadinessCheck
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler running checks on /ready
func NewHealthHandler(version string, checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, timeout: 2 * time.Second}
}

// Live always answers while the process is up
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Ready runs every dependency check
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "unavailable"
			logger.FromContext(ctx).Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
