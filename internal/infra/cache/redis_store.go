package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/rafaelmatth/task-manager-backend/internal/config"
	metricsinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/metrics"
)

const defaultScanBatch = 100

// RedisStore implements the task cache store on go-redis. Every command goes
// through a circuit breaker so an unreachable Redis fails fast once tripped.
type RedisStore struct {
	client    *redis.Client
	cb        *gobreaker.CircuitBreaker
	scanBatch int64
	logger    *slog.Logger
	metrics   *metricsinfra.Metrics
}

func NewRedisStore(client *redis.Client, cfg config.RedisConfig, logger *slog.Logger, metrics *metricsinfra.Metrics) *RedisStore {
	s := &RedisStore{
		client:    client,
		scanBatch: cfg.ScanBatch,
		logger:    logger,
		metrics:   metrics,
	}
	if s.scanBatch <= 0 {
		s.scanBatch = defaultScanBatch
	}

	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.observeState(to)
			if s.logger != nil {
				s.logger.Warn("cache circuit state changed", "from", from.String(), "to", to.String())
			}
		},
	})
	return s
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	out, err := s.cb.Execute(func() (any, error) {
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return raw, err
	})
	if err != nil {
		s.onRedisError("get", err)
		return nil, false, err
	}
	raw, _ := out.([]byte)
	if raw == nil {
		return nil, false, nil
	}
	return raw, true, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, key, data, ttl).Err()
	})
	if err != nil {
		s.onRedisError("set", err)
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.client.Del(ctx, key).Err()
	})
	if err != nil {
		s.onRedisError("del", err)
	}
	return err
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	out, err := s.cb.Execute(func() (any, error) {
		return s.client.Exists(ctx, key).Result()
	})
	if err != nil {
		s.onRedisError("exists", err)
		return false, err
	}
	n, _ := out.(int64)
	return n > 0, nil
}

// DeleteByPattern walks the keyspace with SCAN MATCH COUNT and deletes each
// batch as it arrives. It never issues KEYS.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if s.client == nil {
		return 0, nil
	}
	var deleted int64
	err := s.scan(ctx, pattern, func(keys []string) error {
		out, err := s.cb.Execute(func() (any, error) {
			return s.client.Del(ctx, keys...).Result()
		})
		if err != nil {
			return err
		}
		n, _ := out.(int64)
		deleted += n
		return nil
	})
	if err != nil {
		s.onRedisError("delete_by_pattern", err)
		return deleted, err
	}
	return deleted, nil
}

// Keys collects at most limit keys matching pattern using SCAN.
func (s *RedisStore) Keys(ctx context.Context, pattern string, limit int) ([]string, error) {
	if s.client == nil {
		return nil, nil
	}
	out := make([]string, 0)
	errLimit := errors.New("limit reached")
	err := s.scan(ctx, pattern, func(keys []string) error {
		for _, k := range keys {
			if limit > 0 && len(out) >= limit {
				return errLimit
			}
			out = append(out, k)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		s.onRedisError("scan", err)
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		type page struct {
			keys []string
			next uint64
		}
		out, err := s.cb.Execute(func() (any, error) {
			keys, next, err := s.client.Scan(ctx, cursor, pattern, s.scanBatch).Result()
			return page{keys: keys, next: next}, err
		})
		if err != nil {
			return err
		}
		p := out.(page)
		if len(p.keys) > 0 {
			if err := fn(p.keys); err != nil {
				return err
			}
		}
		if p.next == 0 {
			return nil
		}
		cursor = p.next
	}
}

func (s *RedisStore) onRedisError(op string, err error) {
	if s.logger != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Debug("cache redis skipped, circuit open", "op", op)
		} else {
			s.logger.Warn("cache redis error", "op", op, "err", err)
		}
	}
	if s.metrics != nil {
		s.metrics.RedisDegraded.WithLabelValues("cache").Inc()
	}
}

func (s *RedisStore) observeState(state gobreaker.State) {
	if s.metrics == nil {
		return
	}
	switch state {
	case gobreaker.StateClosed:
		s.metrics.CacheCircuitState.Set(0)
	case gobreaker.StateHalfOpen:
		s.metrics.CacheCircuitState.Set(1)
	case gobreaker.StateOpen:
		s.metrics.CacheCircuitState.Set(2)
	}
}
