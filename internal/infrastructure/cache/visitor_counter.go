package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/maisgenetica/backend/internal/domain/visitor"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultVisitorCacheTTL bounds how stale a cached total may be
	DefaultVisitorCacheTTL = 30 * time.Second
	visitorTotalKey        = "maisgenetica:visitors:total"
)

// CachedVisitorCounter keeps the durable counter authoritative and caches
// its latest total in Redis for reads. Redis failures never fail a request.
type CachedVisitorCounter struct {
	next   visitor.Counter
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedVisitorCounter wraps next with a Redis read cache
func NewCachedVisitorCounter(next visitor.Counter, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedVisitorCounter {
	if ttl <= 0 {
		ttl = DefaultVisitorCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedVisitorCounter{next: next, client: client, ttl: ttl, logger: logger}
}

// Increment counts a visit in the durable store and refreshes the cache
func (c *CachedVisitorCounter) Increment(ctx context.Context) (int64, error) {
	total, err := c.next.Increment(ctx)
	if err != nil {
		return 0, err
	}
	c.store(ctx, total)
	return total, nil
}

// Current serves the cached total, loading it from the durable store on a miss
func (c *CachedVisitorCounter) Current(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, visitorTotalKey).Result()
	if err == nil {
		if total, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			return total, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("visitor cache read failed", zap.Error(err))
	}

	total, err := c.next.Current(ctx)
	if err != nil {
		return 0, err
	}
	c.store(ctx, total)
	return total, nil
}

func (c *CachedVisitorCounter) store(ctx context.Context, total int64) {
	if err := c.client.Set(ctx, visitorTotalKey, total, c.ttl).Err(); err != nil {
		c.logger.Warn("visitor cache write failed", zap.Error(err))
	}
}

// Ensure CachedVisitorCounter implements visitor.Counter
var _ visitor.Counter = (*CachedVisitorCounter)(nil)
