package gatekit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cache backends accepted by CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Config gathers everything Open needs to assemble a Service.
// Field tags follow the mapstructure names used in gatectl's config file.
type Config struct {
	DatabaseURL  string        `mapstructure:"database_url" validate:"required"`
	SuperAdmins  []int64       `mapstructure:"super_admins"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" validate:"min=0"`
	ActorID      int64         `mapstructure:"actor_id"`
	ManifestPath string        `mapstructure:"manifest_path"`
	Cache        CacheConfig   `mapstructure:"cache"`
	Pool         PoolConfig    `mapstructure:"pool"`
	Log          LogConfig     `mapstructure:"log"`
	Retry        RetryConfig   `mapstructure:"retry"`
}

type CacheConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=memory redis none"`
	Size        int           `mapstructure:"size" validate:"min=0"`
	TTL         time.Duration `mapstructure:"ttl" validate:"min=0"`
	CatalogTTL  time.Duration `mapstructure:"catalog_ttl" validate:"min=0"`
	RedisURL    string        `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// RetryConfig bounds retries of mutations that failed on a transient storage error.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	Backoff     time.Duration `mapstructure:"backoff" validate:"min=0"`
}

// DefaultConfig returns a configuration with every optional field filled in.
func DefaultConfig() Config {
	return Config{
		QueryTimeout: 2 * time.Second,
		Cache: CacheConfig{
			Backend:     CacheBackendMemory,
			Size:        10000,
			TTL:         5 * time.Minute,
			CatalogTTL:  10 * time.Minute,
			RedisPrefix: "gatekit",
		},
		Pool: DefaultPoolConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     50 * time.Millisecond,
		},
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	var errs []string

	if err := Validator().Struct(c); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Pool.MaxIdleConnections > c.Pool.MaxOpenConnections && c.Pool.MaxOpenConnections > 0 {
		errs = append(errs, "pool: max_idle_connections cannot be greater than max_open_connections")
	}
	seen := make(map[int64]bool, len(c.SuperAdmins))
	for _, id := range c.SuperAdmins {
		if id == 0 {
			errs = append(errs, "super_admins: user id 0 is not valid")
		}
		if seen[id] {
			errs = append(errs, fmt.Sprintf("super_admins: duplicate user id %d", id))
		}
		seen[id] = true
	}

	if len(errs) > 0 {
		return NewError(ErrMisconfiguration, "invalid config").WithCause(errors.New(strings.Join(errs, "; ")))
	}
	return nil
}
