package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the in-process fallback used when Redis is unavailable.
// Expired windows are swept during Allow, at most once per sweepEvery.
type MemoryLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	entries    map[string]*entry
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type entry struct {
	count int
	reset time.Time
}

func NewMemory(limit int, window time.Duration) *MemoryLimiter {
	sweep := window * 2
	if sweep < time.Minute {
		sweep = time.Minute
	}
	return &MemoryLimiter{
		limit:      limit,
		window:     window,
		entries:    make(map[string]*entry),
		sweepEvery: sweep,
		now:        time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (allowed bool, retryAfter time.Duration) {
	if key == "" || l.limit <= 0 {
		return true, 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.sweepEvery {
		for k, e := range l.entries {
			if now.After(e.reset) {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok || now.After(e.reset) {
		e = &entry{reset: now.Add(l.window)}
		l.entries[key] = e
	}

	if e.count >= l.limit {
		return false, e.reset.Sub(now)
	}

	e.count++
	return true, 0
}
