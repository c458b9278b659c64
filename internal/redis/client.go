// Package redis backs the double-alarm filter with a shared Redis so that
// several relay instances suppress the same repeats.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultNamespace prefixes every key the relay writes
const DefaultNamespace = "alarm-relay"

// Config describes the Redis connection. Zero values take defaults:
// localhost:6379, a pool of 10 and a 5s timeout for pings and writes.
type Config struct {
	Address   string        `json:"address"`
	Password  string        `json:"password"`
	DB        int           `json:"db"`
	PoolSize  int           `json:"pool_size"`
	Namespace string        `json:"namespace"`
	Timeout   time.Duration `json:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = "localhost:6379"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// Client records which alarms were seen recently
type Client struct {
	rdb    *redis.Client
	config Config
}

// NewClient connects and pings the server
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	cfg := config.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	c := &Client{rdb: rdb, config: cfg}

	if err := c.Health(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	return c, nil
}

// Config returns the effective configuration
func (c *Client) Config() Config {
	return c.config
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) seenKey(key string) string {
	return c.config.Namespace + ":seen:" + key
}

// SeenRecently records key for window and reports whether it was already
// recorded. The check and the write are one SET NX PX, so two instances
// receiving the same alarm agree on which one delivers it.
func (c *Client) SeenRecently(ctx context.Context, key string, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	stored, err := c.rdb.SetNX(ctx, c.seenKey(key), time.Now().UnixMilli(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record alarm key: %w", err)
	}
	return !stored, nil
}
