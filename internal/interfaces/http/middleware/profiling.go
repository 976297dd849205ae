package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling labels attached to samples taken while serving a request
const (
	ProfilingLabelRoute  = "http_route"
	ProfilingLabelMethod = "http_method"
)

// Profiling tags CPU and allocation samples with the matched route so
// receipt rendering shows up under its own endpoint in Pyroscope. When
// enabled is false the chain runs untouched.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}

		labels := pyroscope.Labels(ProfilingLabelRoute, route, ProfilingLabelMethod, c.Request.Method)
		pyroscope.TagWrapper(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
