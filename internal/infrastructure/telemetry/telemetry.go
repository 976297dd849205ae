package telemetry

import (
	"context"
	"errors"

	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Telemetry bundles the providers started for one process.
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	cfg      config.TelemetryConfig
}

// Setup starts tracing, metrics, log export and profiling as configured.
// Every piece is a no-op when its switch is off.
func Setup(ctx context.Context, cfg config.TelemetryConfig, env string, logger *zap.Logger) (*Telemetry, error) {
	base := Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}
	t := &Telemetry{cfg: cfg}

	var err error
	if t.Tracer, err = NewTracerProvider(ctx, base, logger); err != nil {
		return nil, err
	}
	if t.Meter, err = NewMeterProvider(ctx, base, 0, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.Logs, err = NewLoggerProvider(ctx, base, cfg.LogExportEnabled, logger); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	t.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.PyroscopeAddress,
		ApplicationName: cfg.ServiceName,
		Environment:     env,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.Profiler.IsEnabled() {
		t.Tracer.EnableSpanProfiles()
	}
	return t, nil
}

// LogCore returns the zap core that exports logs, for logger.New.
func (t *Telemetry) LogCore(level zapcore.Level) zapcore.Core {
	if t.Logs == nil {
		return zapcore.NewNopCore()
	}
	return t.Logs.Core(t.cfg.ServiceName, level)
}

// DBTracing returns the gorm tracing plugin for this configuration.
func (t *Telemetry) DBTracing(logger *zap.Logger) *DBTracingPlugin {
	return NewDBTracingPlugin(DBTracingConfig{
		Enabled:    t.cfg.Enabled && t.cfg.DBTraceEnabled,
		LogFullSQL: t.cfg.DBLogFullSQL,
	}, logger)
}

// Shutdown stops everything that was started, in reverse order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
