package gatekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// HealthReport is the combined health of the store and the decision cache.
type HealthReport struct {
	Healthy   bool               `json:"healthy"`
	Database  dbkit.HealthStatus `json:"database"`
	Pool      dbkit.PoolStats    `json:"pool"`
	Cache     string             `json:"cache"`
	CacheUp   bool               `json:"cache_up"`
	Mutations MutationMetrics    `json:"mutations"`
	CheckedAt time.Time          `json:"checked_at"`
}

// HealthService provides health monitoring functionality as an extension to Service
type HealthService struct {
	*Service
}

// NewHealthService creates a new health service extension
func NewHealthService(service *Service) *HealthService {
	return &HealthService{Service: service}
}

// Health checks the database and the cache. A cache outage does not make the
// report unhealthy because queries fall back to the store.
func (hs *HealthService) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Database:  hs.DatabaseHealth(ctx),
		Pool:      hs.GetPoolStats(),
		Cache:     "ok",
		CacheUp:   true,
		Mutations: hs.MutationMetrics(),
		CheckedAt: time.Now(),
	}
	if err := hs.cache.Ping(ctx); err != nil {
		report.Cache = err.Error()
		report.CacheUp = false
	}
	report.Healthy = report.Database.Healthy
	return report
}

// DatabaseHealth reports dbkit's view of the connection, including latency and
// pool statistics.
func (hs *HealthService) DatabaseHealth(ctx context.Context) dbkit.HealthStatus {
	if hs.db != nil {
		return hs.db.Health(ctx)
	}

	// Without a dbkit handle the store is the only thing to probe.
	if err := hs.Ping(ctx); err != nil {
		return dbkit.HealthStatus{Healthy: false, Error: err.Error()}
	}
	return dbkit.HealthStatus{Healthy: true}
}

// IsHealthy performs a simple health check of the database connection.
func (hs *HealthService) IsHealthy(ctx context.Context) bool {
	if hs.db != nil {
		return hs.db.IsHealthy(ctx)
	}
	return hs.Ping(ctx) == nil
}

// GetPoolStats returns connection pool statistics for monitoring.
// Returns zero values when no dbkit handle is attached.
func (hs *HealthService) GetPoolStats() dbkit.PoolStats {
	if hs.db != nil {
		return dbkit.PoolStatsFromSQL(hs.db.Stats())
	}
	return dbkit.PoolStats{}
}

// Ping issues a cheap catalog read bounded by the query timeout.
func (hs *HealthService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, hs.queryTimeout)
	defer cancel()

	_, err := hs.store.ListPermissions(ctx, NewListFilter().WithLimit(1))
	return asStorageError("Ping", err)
}
