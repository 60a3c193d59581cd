package cache

import (
	"context"
	"time"
)

// NopStore is used when caching is disabled; every read misses.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopStore) SetWithTTL(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Delete(context.Context, string) error { return nil }

func (NopStore) DeleteByPattern(context.Context, string) (int64, error) { return 0, nil }

func (NopStore) Exists(context.Context, string) (bool, error) { return false, nil }

func (NopStore) Keys(context.Context, string, int) ([]string, error) { return []string{}, nil }
