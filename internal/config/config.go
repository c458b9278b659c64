// Package config loads the relay's process configuration from environment
// variables and the per-adapter settings file.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Inbound API port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FORMAT: console or json (default: console)
//   - LOG_FILE: Log file path, stdout when empty
//   - ADAPTER_CONFIG: Adapter settings file (default: ./alarm-relay.yaml)
//   - ADAPTERS: Comma separated adapters to load (default: bosmon,divera,fcm)
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve the inbound API over TLS when both are set
//   - RATE_LIMIT_RPS: Alarm submissions per second per client, 0 disables (default: 0)
//   - RATE_LIMIT_BURST: Burst size per client (default: 10)
//
// Delivery:
//   - HTTP_TIMEOUT: Timeout per outbound provider call (default: 10s)
//   - DISPATCH_TIMEOUT: Timeout for one adapter run (default: 30s)
//   - BREAKER_ENABLED: Guard provider endpoints with a circuit breaker (default: false)
//
// Double alarm filter:
//   - DOUBLE_FILTER_WINDOW: Suppress repeats within this window, 0s disables (default: 0s)
//   - REDIS_ADDRESS: Redis server address; empty keeps the filter in memory
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_NAMESPACE: Key prefix, so deployments can share one Redis (default: alarm-relay)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"alarm-relay/internal/common/ratelimit"
	"alarm-relay/internal/common/validation"
)

// Config holds the process configuration. Duration fields keep the raw
// environment text; Validate checks them and the accessor methods parse them.
type Config struct {
	Port          string
	LogLevel      string
	LogFile       string
	AdapterConfig string
	Adapters      []string
	TLSCertFile   string
	TLSKeyFile    string

	RateLimitRPS   string
	RateLimitBurst string

	HTTPTimeout     string
	DispatchTimeout string
	BreakerEnabled  bool

	DoubleFilterWindow string
	RedisAddress       string
	RedisPassword      string
	RedisDB            string
	RedisNamespace     string
}

// KnownAdapters lists the adapter names ADAPTERS may contain
var KnownAdapters = []string{"bosmon", "divera", "fcm"}

// Load reads the configuration from the environment. It does not validate.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		AdapterConfig: getEnv("ADAPTER_CONFIG", "./alarm-relay.yaml"),
		Adapters:      getListEnv("ADAPTERS", KnownAdapters),
		TLSCertFile:   getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:    getEnv("TLS_KEY_FILE", ""),

		RateLimitRPS:   getEnv("RATE_LIMIT_RPS", "0"),
		RateLimitBurst: getEnv("RATE_LIMIT_BURST", "10"),

		HTTPTimeout:     getEnv("HTTP_TIMEOUT", "10s"),
		DispatchTimeout: getEnv("DISPATCH_TIMEOUT", "30s"),
		BreakerEnabled:  getBoolEnv("BREAKER_ENABLED", false),

		DoubleFilterWindow: getEnv("DOUBLE_FILTER_WINDOW", "0s"),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnv("REDIS_DB", "0"),
		RedisNamespace:     getEnv("REDIS_NAMESPACE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does; other values fall back
// to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	return SplitList(value)
}

// SplitList splits a comma separated list, trimming blanks and dropping
// empty items
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	v := validation.NewValidatorWithPrefix("config")

	v.RequirePort(c.Port, "PORT")
	v.RequireOneOf(strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"}, "LOG_LEVEL")
	v.RequireString(c.AdapterConfig, "ADAPTER_CONFIG")

	if len(c.Adapters) == 0 {
		v.Validate(func() error { return fmt.Errorf("ADAPTERS must name at least one adapter") })
	}
	for _, name := range c.Adapters {
		v.RequireOneOf(name, KnownAdapters, "ADAPTERS")
	}

	v.ValidateIf((c.TLSCertFile == "") != (c.TLSKeyFile == ""), func() error {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	})

	v.RequireNonNegativeFloat(c.RateLimitRPS, "RATE_LIMIT_RPS")
	v.RequireIntRange(c.RateLimitBurst, "RATE_LIMIT_BURST", 1, 1<<20)

	v.RequireDuration(c.HTTPTimeout, "HTTP_TIMEOUT", false)
	v.RequireDuration(c.DispatchTimeout, "DISPATCH_TIMEOUT", false)
	v.RequireDuration(c.DoubleFilterWindow, "DOUBLE_FILTER_WINDOW", true)

	if c.RedisAddress != "" {
		v.RequireIntRange(c.RedisDB, "REDIS_DB", 0, 15)
	}

	return v.Error()
}

// HTTPTimeoutDuration returns HTTP_TIMEOUT, or 10s when unparsable
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return parseDuration(c.HTTPTimeout, 10*time.Second)
}

// DispatchTimeoutDuration returns DISPATCH_TIMEOUT, or 30s when unparsable
func (c *Config) DispatchTimeoutDuration() time.Duration {
	return parseDuration(c.DispatchTimeout, 30*time.Second)
}

// DoubleFilterWindowDuration returns DOUBLE_FILTER_WINDOW, 0 meaning off
func (c *Config) DoubleFilterWindowDuration() time.Duration {
	return parseDuration(c.DoubleFilterWindow, 0)
}

// RedisDBNumber returns REDIS_DB as an int
func (c *Config) RedisDBNumber() int {
	db, err := strconv.Atoi(c.RedisDB)
	if err != nil {
		return 0
	}
	return db
}

// RateLimit returns the inbound limiter configuration
func (c *Config) RateLimit() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	if rps, err := strconv.ParseFloat(c.RateLimitRPS, 64); err == nil && rps > 0 {
		cfg.RequestsPerSecond = rps
	}
	if burst, err := strconv.Atoi(c.RateLimitBurst); err == nil && burst > 0 {
		cfg.BurstSize = burst
	}
	return cfg
}

// AdapterEnabled reports whether name is listed in ADAPTERS
func (c *Config) AdapterEnabled(name string) bool {
	for _, a := range c.Adapters {
		if a == name {
			return true
		}
	}
	return false
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
