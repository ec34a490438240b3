package gatekit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for gatekit.
// Use db.Migrate(ctx, gatekit.Migrations()) to run them; every statement is
// idempotent so running them twice is safe.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "gatekit-001",
			Description: "Create gatekit_users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_users (
                    id BIGSERIAL PRIMARY KEY,
                    external_id BIGINT NOT NULL UNIQUE,
                    username TEXT NOT NULL DEFAULT '',
                    first_name TEXT NOT NULL DEFAULT '',
                    last_name TEXT NOT NULL DEFAULT '',
                    language_code TEXT NOT NULL DEFAULT '',
                    is_active BOOLEAN NOT NULL DEFAULT TRUE,
                    is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
                    last_activity TIMESTAMPTZ,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "gatekit-002",
			Description: "Create gatekit_roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_roles (
                    id BIGSERIAL PRIMARY KEY,
                    name VARCHAR(50) NOT NULL UNIQUE,
                    description TEXT NOT NULL DEFAULT '',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "gatekit-003",
			Description: "Create gatekit_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_permissions (
                    id BIGSERIAL PRIMARY KEY,
                    name VARCHAR(100) NOT NULL UNIQUE,
                    description TEXT NOT NULL DEFAULT '',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "gatekit-004",
			Description: "Create gatekit_role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_role_permissions (
                    id BIGSERIAL PRIMARY KEY,
                    role_id BIGINT NOT NULL REFERENCES gatekit_roles(id) ON DELETE CASCADE,
                    permission_id BIGINT NOT NULL REFERENCES gatekit_permissions(id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (role_id, permission_id)
                )`,
		},
		{
			ID:          "gatekit-005",
			Description: "Create gatekit_user_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_user_permissions (
                    id BIGSERIAL PRIMARY KEY,
                    user_id BIGINT NOT NULL REFERENCES gatekit_users(id) ON DELETE CASCADE,
                    permission_id BIGINT NOT NULL REFERENCES gatekit_permissions(id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (user_id, permission_id)
                )`,
		},
		{
			ID:          "gatekit-006",
			Description: "Create gatekit_user_roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS gatekit_user_roles (
                    id BIGSERIAL PRIMARY KEY,
                    user_id BIGINT NOT NULL REFERENCES gatekit_users(id) ON DELETE CASCADE,
                    role_id BIGINT NOT NULL REFERENCES gatekit_roles(id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (user_id, role_id)
                )`,
		},
		{
			ID:          "gatekit-007",
			Description: "Index association lookups by their second column",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_gatekit_user_roles_role ON gatekit_user_roles (role_id);
                CREATE INDEX IF NOT EXISTS idx_gatekit_user_permissions_permission ON gatekit_user_permissions (permission_id);
                CREATE INDEX IF NOT EXISTS idx_gatekit_role_permissions_permission ON gatekit_role_permissions (permission_id)`,
		},
	}
}

// Migrations returns the schema migrations; see the package level Migrations.
func (s *Service) Migrations() []dbkit.Migration {
	return Migrations()
}
