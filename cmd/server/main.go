package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	visitorapp "github.com/maisgenetica/backend/internal/application/visitor"
	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/maisgenetica/backend/internal/infrastructure/auth"
	"github.com/maisgenetica/backend/internal/infrastructure/cache"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/maisgenetica/backend/internal/infrastructure/event"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/maisgenetica/backend/internal/infrastructure/notification"
	"github.com/maisgenetica/backend/internal/infrastructure/persistence"
	"github.com/maisgenetica/backend/internal/infrastructure/printing"
	"github.com/maisgenetica/backend/internal/infrastructure/storage"
	"github.com/maisgenetica/backend/internal/infrastructure/telemetry"
	"github.com/maisgenetica/backend/internal/interfaces/http/handler"
	"github.com/maisgenetica/backend/internal/interfaces/http/middleware"
	"github.com/maisgenetica/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/maisgenetica/backend/docs"
)

//	@title			Mais Genética API
//	@version		1.0
//	@description	Inscrição de produtores no programa Piauí + Genética e emissão do comprovante em PDF

//	@contact.name	Equipe Piauí + Genética
//	@contact.email	suporte@maisgenetica.example

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Administrator token. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.FromLogConfig(cfg.Log)
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogExportEnabled {
		// Rebuild the logger so entries also go to the collector
		if log, err = logger.New(logCfg, tel.LogCore(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Mais Genética backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tel.DBTracing(log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	meter := tel.Meter.Meter("maisgenetica-backend")
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := telemetry.RegisterDBPoolMetrics(meter, sqlDB); err != nil {
			log.Warn("Failed to register database pool metrics", zap.Error(err))
		}
	}
	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	objects, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	caches := cache.NewFactory(cfg.Redis, cache.WithLogger(log), cache.WithInMemoryFallback(!cfg.IsProduction()))
	if err := caches.Connect(ctx); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := caches.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}()

	location, err := time.LoadLocation(cfg.Receipt.Timezone)
	if err != nil {
		log.Fatal("Invalid receipt timezone", zap.String("timezone", cfg.Receipt.Timezone), zap.Error(err))
	}

	metrics, err := telemetry.NewRegistrationMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create registration metrics", zap.Error(err))
	}

	notifier, err := notification.New(cfg.Notification, location, log)
	if err != nil {
		log.Fatal("Failed to initialize notifier", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(registrationapp.NewNotificationHandler(notifier, cfg.App.PublicURL, log))
	bus.Subscribe(metrics)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	font, err := printing.LoadFontFace(cfg.Receipt.FontFamily, cfg.Receipt.FontRegular, cfg.Receipt.FontBold)
	if err != nil {
		log.Fatal("Failed to load receipt font", zap.Error(err))
	}

	registrations := registrationapp.NewService(
		persistence.NewGormRegistrationRepository(db.DB),
		objects,
		printing.NewComposer(printing.WithComposerLogger(log), printing.WithLocation(location)),
		printing.NewPDFRenderer(log),
	)
	serviceCfg := registrationapp.DefaultServiceConfig()
	serviceCfg.Open = cfg.Registration.Open
	serviceCfg.IdempotencyTTL = cfg.Registration.IdempotencyTTL
	serviceCfg.Render = receipt.RenderOptions{Compress: cfg.Receipt.Compress, Font: font}
	if cfg.Storage.PresignExpiration > 0 {
		serviceCfg.DownloadURLExpiry = cfg.Storage.PresignExpiration
	}
	registrations.SetConfig(serviceCfg)
	registrations.SetLogger(log)
	registrations.SetIdempotencyStore(caches.IdempotencyStore())
	registrations.SetEventPublisher(bus)
	registrations.SetReceiptObserver(metrics)

	visitors := visitorapp.NewService(caches.VisitorCounter(persistence.NewGormVisitorCounter(db.DB)))
	visitors.SetObserver(metrics)

	var blacklist auth.TokenBlacklist
	if client := caches.Client(); client != nil {
		blacklist = auth.NewRedisTokenBlacklist(client)
	}
	admins := auth.NewAdminAuthenticator(cfg.Admin, auth.NewJWTService(cfg.JWT), blacklist)
	if cfg.Admin.PasswordHash == "" {
		log.Warn("Administrator password hash not set, admin login is disabled")
	}

	checks := map[string]handler.ReadinessCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if client := caches.Client(); client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	tracing := middleware.DefaultTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		tracing.ServiceName = cfg.Telemetry.ServiceName
	}
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()

	engine, err := router.New(router.Handlers{
		Registration: handler.NewRegistrationHandler(registrations),
		Admin:        handler.NewAdminHandler(admins, registrations),
		Visitor:      handler.NewVisitorHandler(visitors),
		Health:       handler.NewHealthHandler(version, checks),
	}, router.Options{
		Logger:        log,
		HTTP:          cfg.HTTP,
		Security:      &security,
		Tracing:       tracing,
		Meter:         meter,
		Profiling:     cfg.Telemetry.ProfilingEnabled,
		Authenticator: admins,
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
