package dispatcher

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DoubleFilter suppresses repeated transmissions of the same alarm. Seen
// records key and reports whether it was already recorded within window.
type DoubleFilter interface {
	Seen(ctx context.Context, key string, window time.Duration) (bool, error)
}

// memoryCleanupInterval is how often expired alarm keys are purged
const memoryCleanupInterval = time.Minute

// MemoryFilter is a process-local DoubleFilter backed by go-cache
type MemoryFilter struct {
	cache *gocache.Cache
}

// NewMemoryFilter creates an empty filter
func NewMemoryFilter() *MemoryFilter {
	return &MemoryFilter{cache: gocache.New(gocache.NoExpiration, memoryCleanupInterval)}
}

// Seen records key for window. Add fails when an unexpired entry exists,
// so the check and the write happen under one lock.
func (f *MemoryFilter) Seen(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, nil
	}
	if err := f.cache.Add(key, struct{}{}, window); err != nil {
		return true, nil
	}
	return false, nil
}

// Len returns the number of keys currently held, expired ones included
// until the next cleanup
func (f *MemoryFilter) Len() int {
	return f.cache.ItemCount()
}

// SeenRecentlyFunc adapts a Redis style check to DoubleFilter
type SeenRecentlyFunc func(ctx context.Context, key string, window time.Duration) (bool, error)

func (fn SeenRecentlyFunc) Seen(ctx context.Context, key string, window time.Duration) (bool, error) {
	return fn(ctx, key, window)
}
