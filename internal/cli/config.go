package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fernandezvara/gatekit"
)

// loadConfig reads an optional config file and applies GATEKIT_* environment
// overrides, e.g. GATEKIT_DATABASE_URL or GATEKIT_CACHE_BACKEND.
func loadConfig(path string) (gatekit.Config, error) {
	v := viper.New()
	setDefaults(v, gatekit.DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return gatekit.Config{}, fmt.Errorf("error reading config: %w", err)
		}
	}

	v.SetEnvPrefix("GATEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg gatekit.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return gatekit.Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg gatekit.Config) {
	v.SetDefault("database_url", cfg.DatabaseURL)
	v.SetDefault("super_admins", append([]int64{}, cfg.SuperAdmins...))
	v.SetDefault("query_timeout", cfg.QueryTimeout)
	v.SetDefault("actor_id", cfg.ActorID)
	v.SetDefault("manifest_path", cfg.ManifestPath)

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.size", cfg.Cache.Size)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.catalog_ttl", cfg.Cache.CatalogTTL)
	v.SetDefault("cache.redis_url", cfg.Cache.RedisURL)
	v.SetDefault("cache.redis_prefix", cfg.Cache.RedisPrefix)

	v.SetDefault("pool.max_open_connections", cfg.Pool.MaxOpenConnections)
	v.SetDefault("pool.max_idle_connections", cfg.Pool.MaxIdleConnections)
	v.SetDefault("pool.connection_max_lifetime", cfg.Pool.ConnectionMaxLifetime)
	v.SetDefault("pool.connection_max_idle_time", cfg.Pool.ConnectionMaxIdleTime)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.backoff", cfg.Retry.Backoff)
}
