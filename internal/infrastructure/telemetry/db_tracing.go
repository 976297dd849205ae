package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing settings.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in span statements. Registrations
	// carry CPF numbers, so production config rejects it.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
}

// DBTracingPlugin registers otelgorm and annotates its spans with row
// counts, table names and slow query markers. The annotation runs after the
// statement and before otelgorm ends the span.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a plugin; a zero SlowQueryThresh means 200ms.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// Register installs otelgorm and the timing callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("otel_timing:before_create", markStart),
		cb.Query().Before("gorm:query").Register("otel_timing:before_query", markStart),
		cb.Update().Before("gorm:update").Register("otel_timing:before_update", markStart),
		cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", markStart),
		cb.Row().Before("gorm:row").Register("otel_timing:before_row", markStart),
		cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", markStart),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("otel_timing:after_create", p.annotate),
		cb.Query().After("gorm:query").Before("otel:after:query").Register("otel_timing:after_query", p.annotate),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("otel_timing:after_update", p.annotate),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("otel_timing:after_delete", p.annotate),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("otel_timing:after_row", p.annotate),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("otel_timing:after_raw", p.annotate),
	); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
