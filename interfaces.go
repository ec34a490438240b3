package gatekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Querier answers permission questions. Application code should depend on
// this rather than on *Service.
type Querier interface {
	UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	Check(ctx context.Context, userID int64, permission string) (Decision, error)
	HasAnyPermission(ctx context.Context, userID int64, permissions ...string) (bool, error)
	HasAllPermissions(ctx context.Context, userID int64, permissions ...string) (bool, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Administrator performs the mutations that change who holds what.
type Administrator interface {
	CreateRole(ctx context.Context, name, description string) (int64, error)
	DeleteRole(ctx context.Context, name string) error
	CreatePermission(ctx context.Context, name, description string) (int64, error)
	DeletePermission(ctx context.Context, name string) error
	AddPermissionToRole(ctx context.Context, roleName, permission string) error
	RemovePermissionFromRole(ctx context.Context, roleName, permission string) error
	AssignRole(ctx context.Context, userID int64, roleName string) error
	RevokeRole(ctx context.Context, userID int64, roleName string) error
	GrantPermission(ctx context.Context, userID int64, permission string) error
	RevokePermission(ctx context.Context, userID int64, permission string) error
}

// Registrar is the startup hook modules use to declare what they need.
type Registrar interface {
	EnsureRole(ctx context.Context, name, description string) (*Role, error)
	EnsurePermission(ctx context.Context, name, description string) (*Permission, error)
	Bootstrap(ctx context.Context, registry *Registry) (BootstrapReport, error)
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) HealthReport
	DatabaseHealth(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// MutationMonitor defines the mutation monitoring interface
type MutationMonitor interface {
	MutationMetrics() MutationMetrics
	ResetMutationMetrics()
	IsMutationHealthy() bool
}

var (
	_ Querier         = (*Service)(nil)
	_ Administrator   = (*Service)(nil)
	_ Registrar       = (*Service)(nil)
	_ MutationMonitor = (*Service)(nil)
	_ HealthMonitor   = (*HealthService)(nil)
)
