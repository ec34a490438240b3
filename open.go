package gatekit

import (
	"context"
	"errors"
	"fmt"

	"github.com/fernandezvara/dbkit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Instance is a Service together with the connections Open made for it.
type Instance struct {
	*Service
	DB *dbkit.DBKit

	redis *redis.Client
}

// Open connects to the database and the configured cache and assembles a
// Service from cfg. Metrics are registered when registerer is non-nil.
// The caller owns the result and must Close it.
//
// Example:
//
//	cfg := gatekit.DefaultConfig()
//	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
//	inst, err := gatekit.Open(ctx, cfg, logger, prometheus.DefaultRegisterer)
//	if err != nil {
//	    return err
//	}
//	defer inst.Close()
func Open(ctx context.Context, cfg Config, logger logrus.FieldLogger, registerer prometheus.Registerer) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	ConfigureConnectionPool(db.Bun(), cfg.Pool, logger)

	inst := &Instance{DB: db}

	var cache DecisionCache
	switch cfg.Cache.Backend {
	case CacheBackendRedis:
		client, err := DialRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		inst.redis = client
		cache = NewRedisCache(client, cfg.Cache.RedisPrefix)
	case CacheBackendNone:
		cache = NopCache{}
	default:
		cache = NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	}

	opts := []Option{
		WithLogger(logger),
		WithDatabase(db),
		WithCache(cache),
		WithSuperAdmins(cfg.SuperAdmins...),
		WithQueryTimeout(cfg.QueryTimeout),
		WithDecisionTTL(cfg.Cache.TTL),
		WithRetry(cfg.Retry),
	}
	if cfg.Cache.Backend == CacheBackendNone {
		opts = append(opts, WithDecisionTTL(0))
	}
	if cfg.Cache.Size > 0 {
		opts = append(opts, WithCatalogCache(cfg.Cache.Size, cfg.Cache.CatalogTTL))
	}
	if registerer != nil {
		opts = append(opts, WithMetrics(NewMetrics(registerer)))
	}

	inst.Service = NewService(NewStore(db.Bun()), opts...)

	logger.WithFields(logrus.Fields{
		"cache":        cfg.Cache.Backend,
		"super_admins": len(cfg.SuperAdmins),
	}).Info("gatekit ready")

	return inst, nil
}

// Migrate applies the schema migrations and returns the ids it applied.
func (i *Instance) Migrate(ctx context.Context) ([]string, error) {
	result, err := i.DB.Migrate(ctx, Migrations())
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var applied []string
	for _, m := range result.Applied {
		applied = append(applied, m.ID)
	}
	return applied, nil
}

// Close releases the cache connection and the database.
func (i *Instance) Close() error {
	var errs []error
	if i.redis != nil {
		errs = append(errs, i.redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	return errors.Join(errs...)
}
