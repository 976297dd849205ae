package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Log messages emitted by GormLogger.Trace
const (
	msgSQLFailed = "sql failed"
	msgSQLSlow   = "slow sql"
	msgSQL       = "sql"
)

// cpfPattern matches CPF numbers, masked or digits only, as bound literals
var cpfPattern = regexp.MustCompile(`'\d{3}\.?\d{3}\.?\d{3}-?\d{2}'`)

// GormLogger sends GORM statements to zap. CPF literals are masked in the
// logged SQL, and statements run inside a request carry its request_id,
// registration_id and trace_id.
type GormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	// logNotFound also logs gorm.ErrRecordNotFound, a normal outcome of
	// receipt lookups
	logNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow statement threshold; zero disables it
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithRecordNotFoundLogged logs lookups that found nothing as errors
func WithRecordNotFoundLogged() GormLoggerOption {
	return func(l *GormLogger) {
		l.logNotFound = true
	}
}

// NewGormLogger writes to zapLogger.Named("gorm")
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		logLevel:      level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var msg string
	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		if !l.logNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		msg = msgSQLFailed
	case slow && l.logLevel >= gormlogger.Warn:
		msg = msgSQLSlow
	case err == nil && l.logLevel >= gormlogger.Info:
		msg = msgSQL
	default:
		return
	}

	sql, rows := fc()
	fields := append(requestFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", MaskCPF(sql)),
	)
	switch msg {
	case msgSQLFailed:
		l.logger.Error(msg, append(fields, zap.Error(err))...)
	case msgSQLSlow:
		l.logger.Warn(msg, append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		l.logger.Debug(msg, fields...)
	}
}

func requestFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetRegistrationID(ctx); id != "" {
		fields = append(fields, zap.String("registration_id", id))
	}
	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

// MaskCPF replaces quoted CPF literals with '***.***.***-**'
func MaskCPF(sql string) string {
	return cpfPattern.ReplaceAllLiteralString(sql, "'***.***.***-**'")
}

// MapGormLogLevel maps the application log level to a GORM level. Every
// statement is logged only at debug; other levels keep warnings and errors.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
