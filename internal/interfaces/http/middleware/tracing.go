package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCodeKey is where handlers leave the API error code of a failed request
const ErrorCodeKey = "error_code"

// Span attribute keys added on top of otelgin's
const (
	SpanAttrRequestID = "request_id"
	SpanAttrAdmin     = "admin.username"
	SpanAttrErrorCode = "app.error_code"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
	// SkipPaths are served without a span
	SkipPaths []string
}

// DefaultTracingConfig returns the default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "maisgenetica-backend",
		Enabled:     true,
		SkipPaths:   []string{"/health", "/ready"},
	}
}

// Tracing starts a server span per request with otelgin and decorates it
// with the request ID, the administrator and the API error code
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	otelMiddleware := otelgin.Middleware(cfg.ServiceName, opts...)

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		// otelgin calls c.Next itself, after storing the span on c.Request
		otelMiddleware(c)
	}
}

// TraceAttributes enriches the current span. It must run after Tracing so
// the span is still open while it works.
func TraceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String(SpanAttrRequestID, id))
		}

		c.Next()

		if username := GetJWTUsername(c); username != "" {
			span.SetAttributes(attribute.String(SpanAttrAdmin, username))
		}
		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(attribute.String(SpanAttrErrorCode, code))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		}
	}
}
