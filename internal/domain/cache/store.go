package cache

import (
	"context"
	"time"
)

// Store is the key-value capability the task query cache is built on.
// Get reports absent keys as (nil, false, nil); expired keys are absent.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	SetWithTTL(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern removes every key matching a glob pattern and returns
	// how many were deleted. Implementations must scan incrementally.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
}
