package gatekit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// CATALOG LOOKUPS
// ============================================================================

// FindPermissionByName loads a permission by its exact name.
func (s *BunStore) FindPermissionByName(ctx context.Context, name string) (*Permission, error) {
	var p Permission
	err := s.db.NewSelect().Model(&p).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("permission", name).WithPermission(name)
		}
		return nil, classify("FindPermissionByName", err)
	}
	return &p, nil
}

// FindRoleByName loads a role by its exact name.
func (s *BunStore) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	var r Role
	err := s.db.NewSelect().Model(&r).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("role", name).WithRole(name)
		}
		return nil, classify("FindRoleByName", err)
	}
	return &r, nil
}

// ListRoles returns roles ordered by name.
func (s *BunStore) ListRoles(ctx context.Context, filter ListFilter) ([]Role, error) {
	var roles []Role
	q := s.db.NewSelect().Model(&roles).Order("name ASC")
	if filter.Prefix != "" {
		q = q.Where("name LIKE ?", likePattern(filter.Prefix))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("ListRoles", err)
	}
	return roles, nil
}

// ListPermissions returns permissions ordered by name.
func (s *BunStore) ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error) {
	var perms []Permission
	q := s.db.NewSelect().Model(&perms).Order("name ASC")
	if filter.Module != "" {
		q = q.Where("name LIKE ?", likePattern(filter.Module+"."))
	}
	if filter.Prefix != "" {
		q = q.Where("name LIKE ?", likePattern(filter.Prefix))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("ListPermissions", err)
	}
	return perms, nil
}

// ============================================================================
// CATALOG MUTATIONS
// ============================================================================

// CreateRole inserts a new role and fails with ErrAlreadyExists on a name collision.
func (s *BunStore) CreateRole(ctx context.Context, name, description string) (int64, error) {
	id, err := s.createNamed(ctx, "CreateRole", "gatekit_roles", name, description)
	if IsAlreadyExists(err) {
		return 0, NewError(ErrAlreadyExists, "role "+name).WithRole(name)
	}
	return id, err
}

// CreatePermission inserts a new permission and fails with ErrAlreadyExists on a name collision.
func (s *BunStore) CreatePermission(ctx context.Context, name, description string) (int64, error) {
	id, err := s.createNamed(ctx, "CreatePermission", "gatekit_permissions", name, description)
	if IsAlreadyExists(err) {
		return 0, NewError(ErrAlreadyExists, "permission "+name).WithPermission(name)
	}
	return id, err
}

func (s *BunStore) createNamed(ctx context.Context, op, table, name, description string) (int64, error) {
	var id int64
	err := s.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewRaw(
			"INSERT INTO ? (name, description) VALUES (?, ?) ON CONFLICT (name) DO NOTHING RETURNING id",
			bun.Ident(table), name, description,
		).Scan(ctx, &id)
		if errors.Is(err, sql.ErrNoRows) || dbkit.IsDuplicate(err) {
			return NewError(ErrAlreadyExists, name)
		}
		return err
	})
	return id, err
}

// EnsureRole returns the named role, creating it when missing.
// The boolean reports whether a row was created.
func (s *BunStore) EnsureRole(ctx context.Context, name, description string) (*Role, bool, error) {
	var (
		role    Role
		created bool
	)
	err := s.inTx(ctx, "EnsureRole", func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewRaw(
			"INSERT INTO gatekit_roles (name, description) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
			name, description,
		).Exec(ctx)
		if err != nil {
			return err
		}
		created = rowsChanged(res)
		return tx.NewSelect().Model(&role).Where("name = ?", name).Limit(1).Scan(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	return &role, created, nil
}

// EnsurePermission returns the named permission, creating it when missing.
func (s *BunStore) EnsurePermission(ctx context.Context, name, description string) (*Permission, bool, error) {
	var (
		perm    Permission
		created bool
	)
	err := s.inTx(ctx, "EnsurePermission", func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewRaw(
			"INSERT INTO gatekit_permissions (name, description) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
			name, description,
		).Exec(ctx)
		if err != nil {
			return err
		}
		created = rowsChanged(res)
		return tx.NewSelect().Model(&perm).Where("name = ?", name).Limit(1).Scan(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	return &perm, created, nil
}

// DeleteRole removes a role. Its user and permission associations cascade.
// The returned ids are the users that held the role.
func (s *BunStore) DeleteRole(ctx context.Context, roleID int64) (bool, []int64, error) {
	var (
		deleted bool
		holders []int64
	)
	err := s.inTx(ctx, "DeleteRole", func(ctx context.Context, tx bun.Tx) error {
		var got int64
		err := tx.NewRaw("SELECT id FROM gatekit_roles WHERE id = ? FOR UPDATE", roleID).Scan(ctx, &got)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		holders, err = scanIDs(ctx, tx, roleHoldersSQL, roleID)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*Role)(nil)).Where("id = ?", roleID).Exec(ctx)
		if err != nil {
			return err
		}
		deleted = rowsChanged(res)
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return deleted, holders, nil
}

// DeletePermission removes a permission. Direct grants and role grants cascade.
// The returned ids are every user that could see the permission before the delete.
func (s *BunStore) DeletePermission(ctx context.Context, permissionID int64) (bool, []int64, error) {
	var (
		deleted bool
		holders []int64
	)
	err := s.inTx(ctx, "DeletePermission", func(ctx context.Context, tx bun.Tx) error {
		var got int64
		err := tx.NewRaw("SELECT id FROM gatekit_permissions WHERE id = ? FOR UPDATE", permissionID).Scan(ctx, &got)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		holders, err = scanIDs(ctx, tx, permissionHoldersSQL, permissionID, permissionID)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*Permission)(nil)).Where("id = ?", permissionID).Exec(ctx)
		if err != nil {
			return err
		}
		deleted = rowsChanged(res)
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return deleted, holders, nil
}

const (
	roleHoldersSQL = `
		SELECT u.external_id FROM gatekit_user_roles ur
		JOIN gatekit_users u ON u.id = ur.user_id
		WHERE ur.role_id = ?
		ORDER BY u.external_id`

	permissionHoldersSQL = `
		SELECT u.external_id FROM gatekit_users u
		WHERE u.id IN (
			SELECT up.user_id FROM gatekit_user_permissions up WHERE up.permission_id = ?
			UNION
			SELECT ur.user_id FROM gatekit_user_roles ur
			JOIN gatekit_role_permissions rp ON rp.role_id = ur.role_id
			WHERE rp.permission_id = ?
		)
		ORDER BY u.external_id`
)
