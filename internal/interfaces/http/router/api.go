package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
	"github.com/maisgenetica/backend/internal/interfaces/http/handler"
	"github.com/maisgenetica/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the handlers mounted by New
type Handlers struct {
	Registration *handler.RegistrationHandler
	Admin        *handler.AdminHandler
	Visitor      *handler.VisitorHandler
	Health       *handler.HealthHandler
}

// Options configure the middleware chain
type Options struct {
	Logger *zap.Logger
	HTTP   config.HTTPConfig
	// Security overrides the default security headers when non-nil
	Security      *middleware.SecurityConfig
	Tracing       middleware.TracingConfig
	Meter         metric.Meter
	Profiling     bool
	Authenticator middleware.TokenAuthenticator
	// Swagger guards /swagger; the docs package registers the API document
	Swagger middleware.SwaggerConfig
}

// Engine is the assembled gin engine with the resources it owns
type Engine struct {
	*gin.Engine
	limiters []*middleware.RateLimiter
}

// Close stops the rate limiter cleanup goroutines
func (e *Engine) Close() {
	for _, l := range e.limiters {
		l.Stop()
	}
}

// New builds the engine with the full middleware chain and every route.
//
// Middleware order matters: the request ID comes first so every log line
// and span carries it, Tracing must precede TraceAttributes, and the body
// limit sits in front of all handlers that read a body.
func New(h Handlers, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(notFound)
	engine.NoMethod(methodNotAllowed)

	metrics, err := middleware.HTTPMetrics(opts.Meter)
	if err != nil {
		return nil, err
	}

	security := middleware.DefaultSecurityConfig()
	if opts.Security != nil {
		security = *opts.Security
	}

	cors := middleware.DefaultCORSConfig()
	if len(opts.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = opts.HTTP.CORSAllowOrigins
	}
	if len(opts.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = opts.HTTP.CORSAllowMethods
	}
	if len(opts.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = opts.HTTP.CORSAllowHeaders
	}

	e := &Engine{Engine: engine}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log, internalError),
		logger.GinMiddleware(log),
		middleware.SecureWithConfig(security),
		middleware.CORSWithConfig(cors),
		middleware.Tracing(opts.Tracing),
		middleware.TraceAttributes(),
		metrics,
		middleware.Profiling(opts.Profiling),
	)
	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}
	if opts.HTTP.RateLimitEnabled && opts.HTTP.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(opts.HTTP.RateLimitRequests, opts.HTTP.RateLimitWindow)
		e.limiters = append(e.limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Live)
		engine.GET("/ready", h.Health.Ready)
	}

	var docsAuth gin.HandlerFunc
	if opts.Authenticator != nil {
		docsAuth = middleware.AdminAuth(opts.Authenticator, log)
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(opts.Swagger, docsAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine, WithRouteLogger(log))
	if h.Registration != nil {
		r.Register(e.registrationRoutes(h.Registration, opts.HTTP))
	}
	if h.Visitor != nil {
		r.Register(NewDomainGroup("visitors", "/visitors").
			GET("", h.Visitor.Count).
			POST("", h.Visitor.Hit))
	}
	if h.Admin != nil {
		r.Register(adminRoutes(h.Admin, opts.Authenticator, log))
	}
	routes := r.Setup()
	log.Info("http routes mounted", zap.Int("count", len(routes)))

	return e, nil
}

func (e *Engine) registrationRoutes(h *handler.RegistrationHandler, cfg config.HTTPConfig) *DomainGroup {
	submit := []gin.HandlerFunc{h.Submit}
	if cfg.RateLimitEnabled && cfg.SubmitRateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(cfg.SubmitRateLimitRequests, cfg.SubmitRateLimitWindow)
		e.limiters = append(e.limiters, limiter)
		submit = append([]gin.HandlerFunc{middleware.RateLimit(limiter)}, submit...)
	}

	return NewDomainGroup("registrations", "/registrations").
		GET("/status", h.Status).
		POST("", submit...).
		GET("/:id", h.Get).
		GET("/:id/receipt", h.DownloadReceipt)
}

func adminRoutes(h *handler.AdminHandler, authenticator middleware.TokenAuthenticator, log *zap.Logger) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").
		POST("/login", h.Login)

	admin.Group("admin-session", "").
		Use(middleware.AdminAuth(authenticator, log)).
		POST("/logout", h.Logout).
		GET("/registrations", h.ListRegistrations).
		GET("/registrations/:id", h.GetRegistration).
		GET("/registrations/:id/attachment", h.AttachmentURL)
	return admin
}

func internalError(c *gin.Context) {
	c.Set(middleware.ErrorCodeKey, dto.ErrCodeInternal)
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "Erro interno. Tente novamente mais tarde.", middleware.GetRequestID(c)))
}

func notFound(c *gin.Context) {
	c.Set(middleware.ErrorCodeKey, dto.ErrCodeNotFound)
	c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeNotFound, "Rota não encontrada", middleware.GetRequestID(c)))
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeBadRequest, "Método não permitido", middleware.GetRequestID(c)))
}
