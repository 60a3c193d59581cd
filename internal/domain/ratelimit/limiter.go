package ratelimit

import (
	"context"
	"time"
)

// Limiter is a fixed window counter keyed by caller (IP for login).
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration)
}
