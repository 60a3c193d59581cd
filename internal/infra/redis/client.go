package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rafaelmatth/task-manager-backend/internal/config"
)

type Client struct {
	Redis *redis.Client
}

// New does not dial; go-redis connects lazily, so a Redis outage at boot
// only degrades the cache.
func New(cfg config.RedisConfig) *Client {
	cli := redis.NewClient(Options(cfg))
	return &Client{Redis: cli}
}

// Options maps config onto go-redis with a bounded per-command retry budget.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
	}
}

func (c *Client) Ping(ctx context.Context, logger *slog.Logger) bool {
	if c == nil || c.Redis == nil {
		return false
	}
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warn("redis ping failed", "err", err)
		}
		return false
	}
	return true
}

func (c *Client) Close() error {
	if c == nil || c.Redis == nil {
		return nil
	}
	return c.Redis.Close()
}
