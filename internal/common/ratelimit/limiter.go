// Package ratelimit throttles inbound alarm submissions per client using
// token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config represents rate limiter configuration. A zero RequestsPerSecond
// disables limiting.
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	MaxKeys           int
	IdleTimeout       time.Duration
}

// DefaultConfig returns the limits applied when only the rate is set
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 0,
		BurstSize:         10,
		MaxKeys:           10000,
		IdleTimeout:       5 * time.Minute,
	}
}

// Enabled reports whether the config limits anything
func (c Config) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// Validate fills defaults and rejects negative values
func (c *Config) Validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	if c.BurstSize < 0 {
		return fmt.Errorf("burst size must not be negative")
	}
	if c.BurstSize == 0 {
		c.BurstSize = int(c.RequestsPerSecond)
		if c.BurstSize < 1 {
			c.BurstSize = 1
		}
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 10000
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	return nil
}

// Limiter keeps one token bucket per key
type Limiter struct {
	mu       sync.Mutex
	config   Config
	limiters map[string]*limiterEntry
	now      func() time.Time

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// New creates a limiter
func New(config Config) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		now:         time.Now,
		lastCleanup: time.Now(),
	}, nil
}

// Config returns the effective configuration
func (rl *Limiter) Config() Config {
	return rl.config
}

// Allow reports whether a request for key may proceed now
func (rl *Limiter) Allow(key string) bool {
	if !rl.config.Enabled() {
		return true
	}
	return rl.limiterFor(key).AllowN(rl.now(), 1)
}

// limiterFor gets or creates the bucket for key
func (rl *Limiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > rl.config.IdleTimeout {
		rl.cleanup(now)
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
		}
		rl.limiters[key] = entry
		if len(rl.limiters) > rl.config.MaxKeys {
			rl.cleanup(now)
		}
	}
	entry.lastUsed = now
	return entry.limiter
}

// cleanup drops buckets that have been idle longer than IdleTimeout
func (rl *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.IdleTimeout)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = now
}

// ActiveKeys returns the number of tracked clients
func (rl *Limiter) ActiveKeys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
