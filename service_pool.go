package gatekit

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

// PoolConfig sizes the database connection pool.
type PoolConfig struct {
	MaxOpenConnections    int           `mapstructure:"max_open_connections" validate:"min=0"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections" validate:"min=0"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime" validate:"min=0"`
	ConnectionMaxIdleTime time.Duration `mapstructure:"connection_max_idle_time" validate:"min=0"`
}

// DefaultPoolConfig suits a single service instance doing mostly cached reads.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    20,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// ConfigureConnectionPool applies the pool settings to a bun database.
// Zero values leave the driver default in place.
func ConfigureConnectionPool(db *bun.DB, config PoolConfig, logger logrus.FieldLogger) {
	if db == nil {
		return
	}
	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}
	if config.ConnectionMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	}
	if config.ConnectionMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"max_open":      config.MaxOpenConnections,
			"max_idle":      config.MaxIdleConnections,
			"max_lifetime":  config.ConnectionMaxLifetime,
			"max_idle_time": config.ConnectionMaxIdleTime,
		}).Debug("connection pool configured")
	}
}
