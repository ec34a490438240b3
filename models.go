package gatekit

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a platform identity observed by the transport layer.
// Users are deactivated rather than deleted in normal operation.
type User struct {
	bun.BaseModel `bun:"table:gatekit_users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ExternalID   int64     `bun:"external_id,notnull,unique"`
	Username     string    `bun:"username"`
	FirstName    string    `bun:"first_name"`
	LastName     string    `bun:"last_name"`
	LanguageCode string    `bun:"language_code"`
	IsActive     bool      `bun:"is_active,notnull,default:true"`
	IsBlocked    bool      `bun:"is_blocked,notnull,default:false"`
	LastActivity time.Time `bun:"last_activity,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// DisplayName returns the best human readable name for the user.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	}
	return ""
}

// UserProfile carries the profile fields supplied by the transport layer on each interaction.
type UserProfile struct {
	ExternalID   int64  `validate:"required"`
	Username     string `validate:"max=255"`
	FirstName    string `validate:"max=255"`
	LastName     string `validate:"max=255"`
	LanguageCode string `validate:"max=10"`
}

// Role is a named bundle of permissions.
type Role struct {
	bun.BaseModel `bun:"table:gatekit_roles,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Permission is an atomic "<module>.<action>" capability.
type Permission struct {
	bun.BaseModel `bun:"table:gatekit_permissions,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Module returns the module prefix of the permission name.
func (p *Permission) Module() string {
	module, _, _ := SplitPermission(p.Name)
	return module
}

// RolePermission grants every holder of a role one permission.
type RolePermission struct {
	bun.BaseModel `bun:"table:gatekit_role_permissions,alias:rp"`

	ID           int64     `bun:"id,pk,autoincrement"`
	RoleID       int64     `bun:"role_id,notnull"`
	PermissionID int64     `bun:"permission_id,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// UserPermission grants a permission directly to a user.
type UserPermission struct {
	bun.BaseModel `bun:"table:gatekit_user_permissions,alias:up"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	PermissionID int64     `bun:"permission_id,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// UserRole assigns a role to a user.
type UserRole struct {
	bun.BaseModel `bun:"table:gatekit_user_roles,alias:ur"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	RoleID    int64     `bun:"role_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// AuditAction names an administrative mutation in the audit log.
type AuditAction string

const (
	AuditActionAssignRole       AuditAction = "assign_role"
	AuditActionRevokeRole       AuditAction = "revoke_role"
	AuditActionGrantPermission  AuditAction = "grant_permission"
	AuditActionRevokePermission AuditAction = "revoke_permission"
	AuditActionAddRolePerm      AuditAction = "add_role_permission"
	AuditActionRemoveRolePerm   AuditAction = "remove_role_permission"
	AuditActionCreateRole       AuditAction = "create_role"
	AuditActionDeleteRole       AuditAction = "delete_role"
	AuditActionCreatePermission AuditAction = "create_permission"
	AuditActionDeletePermission AuditAction = "delete_permission"
	AuditActionUpdateUser       AuditAction = "update_user"
	AuditActionDeleteUser       AuditAction = "delete_user"
)

// AuditEntry describes one mutation for the audit log.
// The log is a side effect; it is written after the mutation commits.
type AuditEntry struct {
	Action     AuditAction
	ActorID    int64
	TargetUser int64
	Role       string
	Permission string
	Changed    bool
	Affected   int
	RequestID  string
}
