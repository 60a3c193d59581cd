package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	metricsinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/metrics"
)

// RedisLimiter counts attempts per key in a Redis fixed window and falls
// back to the in-memory limiter on any Redis error.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	limit    int
	window   time.Duration
	fallback *MemoryLimiter
	logger   *slog.Logger
	metrics  *metricsinfra.Metrics
}

func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration, logger *slog.Logger, metrics *metricsinfra.Metrics) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		limit:    limit,
		window:   window,
		fallback: NewMemory(limit, window),
		logger:   logger,
		metrics:  metrics,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if key == "" || l.limit <= 0 {
		return true, 0
	}
	if l.client == nil {
		return l.fallback.Allow(ctx, key)
	}

	rkey := l.prefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, rkey)
		ttl = p.TTL(ctx, rkey)
		return nil
	})
	if err != nil {
		l.onRedisError(err)
		return l.fallback.Allow(ctx, key)
	}

	// A key without expiry was just created (or lost its TTL); start the window.
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			l.onRedisError(err)
		}
	}

	if int(incr.Val()) > l.limit {
		if d := ttl.Val(); d > 0 {
			return false, ceilDuration(d)
		}
		return false, remainingDuration(l.window, time.Now().UTC())
	}
	return true, 0
}

func (l *RedisLimiter) onRedisError(err error) {
	if l.logger != nil {
		l.logger.Warn("redis limiter error", "err", err)
	}
	if l.metrics != nil {
		l.metrics.RedisDegraded.WithLabelValues("ratelimit").Inc()
	}
}

func ceilDuration(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := math.Ceil(d.Seconds())
	return time.Duration(secs) * time.Second
}

func remainingDuration(window time.Duration, now time.Time) time.Duration {
	ws := int64(window.Seconds())
	if ws <= 0 {
		return time.Second
	}
	rem := ws - (now.Unix() % ws)
	if rem <= 0 {
		rem = 1
	}
	return time.Duration(rem) * time.Second
}
