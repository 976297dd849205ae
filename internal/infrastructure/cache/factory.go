package cache

import (
	"context"
	"fmt"

	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/domain/visitor"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the Redis-backed components, falling back to in-process
// versions when Redis is disabled or unreachable
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis is an error.
// Default is true (allow fallback).
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials Redis when enabled. With fallback allowed a dial failure is
// logged and the factory continues without Redis.
func (f *Factory) Connect(ctx context.Context) error {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-process caches")
		return nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-process caches; "+
			"idempotency keys will not be shared between instances",
			zap.Error(err),
		)
		return nil
	}

	f.client = client
	f.logger.Info("Connected to Redis", zap.String("host", f.redisConfig.Host), zap.Int("port", f.redisConfig.Port))
	return nil
}

// Client returns the Redis client, or nil when running without Redis
func (f *Factory) Client() *redis.Client {
	return f.client
}

// IdempotencyStore returns the Redis store when connected, otherwise an in-memory one
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStore(f.client, DefaultIdempotencyKeyPrefix)
	}
	return NewInMemoryIdempotencyStore(0)
}

// VisitorCounter wraps counter with the Redis read cache when connected
func (f *Factory) VisitorCounter(counter visitor.Counter) visitor.Counter {
	if f.client == nil {
		return counter
	}
	return NewCachedVisitorCounter(counter, f.client, DefaultVisitorCacheTTL, f.logger)
}

// Close closes the Redis client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
