package gatekit

import (
	"context"

	"github.com/uptrace/bun"
)

// ============================================================================
// GRANT READS
// ============================================================================

// DirectPermissionNames returns the permissions granted to the user directly.
// An unknown user has no grants.
func (s *BunStore) DirectPermissionNames(ctx context.Context, userID int64) (PermissionSet, error) {
	names, err := scanNames(ctx, s.db, `
		SELECT p.name FROM gatekit_user_permissions up
		JOIN gatekit_users u ON u.id = up.user_id
		JOIN gatekit_permissions p ON p.id = up.permission_id
		WHERE u.external_id = ?`, userID)
	if err != nil {
		return PermissionSet{}, classify("DirectPermissionNames", err)
	}
	return NewPermissionSet(names...), nil
}

// RolePermissionNames returns the union of the permissions of every role the user holds.
func (s *BunStore) RolePermissionNames(ctx context.Context, userID int64) (PermissionSet, error) {
	names, err := scanNames(ctx, s.db, `
		SELECT DISTINCT p.name FROM gatekit_user_roles ur
		JOIN gatekit_users u ON u.id = ur.user_id
		JOIN gatekit_role_permissions rp ON rp.role_id = ur.role_id
		JOIN gatekit_permissions p ON p.id = rp.permission_id
		WHERE u.external_id = ?`, userID)
	if err != nil {
		return PermissionSet{}, classify("RolePermissionNames", err)
	}
	return NewPermissionSet(names...), nil
}

// UserRoleNames returns the names of the roles the user holds, sorted.
func (s *BunStore) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	names, err := scanNames(ctx, s.db, `
		SELECT r.name FROM gatekit_user_roles ur
		JOIN gatekit_users u ON u.id = ur.user_id
		JOIN gatekit_roles r ON r.id = ur.role_id
		WHERE u.external_id = ?
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, classify("UserRoleNames", err)
	}
	return names, nil
}

// RolePermissionNamesOf returns the permission names bundled in a role, sorted.
func (s *BunStore) RolePermissionNamesOf(ctx context.Context, roleID int64) ([]string, error) {
	names, err := scanNames(ctx, s.db, `
		SELECT p.name FROM gatekit_role_permissions rp
		JOIN gatekit_permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ?
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, classify("RolePermissionNamesOf", err)
	}
	return names, nil
}

// RoleHolders returns the external ids of the users holding a role.
func (s *BunStore) RoleHolders(ctx context.Context, roleID int64) ([]int64, error) {
	ids, err := scanIDs(ctx, s.db, roleHoldersSQL, roleID)
	if err != nil {
		return nil, classify("RoleHolders", err)
	}
	return ids, nil
}

// ============================================================================
// GRANT MUTATIONS
// ============================================================================

// AssignRole gives a role to a user. Assigning a held role is a no-op.
func (s *BunStore) AssignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "AssignRole", func(ctx context.Context, tx bun.Tx) error {
		uid, err := lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := lockRow(ctx, tx, "gatekit_roles", roleID); err != nil {
			return err
		}
		res, err := tx.NewRaw(
			"INSERT INTO gatekit_user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT (user_id, role_id) DO NOTHING",
			uid, roleID,
		).Exec(ctx)
		changed = rowsChanged(res)
		return err
	})
	return changed, err
}

// RevokeRole removes a role from a user. Revoking an absent role is a no-op.
func (s *BunStore) RevokeRole(ctx context.Context, userID, roleID int64) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "RevokeRole", func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewRaw(`
			DELETE FROM gatekit_user_roles ur USING gatekit_users u
			WHERE ur.user_id = u.id AND u.external_id = ? AND ur.role_id = ?`,
			userID, roleID,
		).Exec(ctx)
		changed = rowsChanged(res)
		return err
	})
	return changed, err
}

// GrantPermission gives a permission directly to a user.
func (s *BunStore) GrantPermission(ctx context.Context, userID, permissionID int64) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "GrantPermission", func(ctx context.Context, tx bun.Tx) error {
		uid, err := lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := lockRow(ctx, tx, "gatekit_permissions", permissionID); err != nil {
			return err
		}
		res, err := tx.NewRaw(
			"INSERT INTO gatekit_user_permissions (user_id, permission_id) VALUES (?, ?) ON CONFLICT (user_id, permission_id) DO NOTHING",
			uid, permissionID,
		).Exec(ctx)
		changed = rowsChanged(res)
		return err
	})
	return changed, err
}

// RevokePermission removes a direct grant. Role-derived grants are unaffected.
func (s *BunStore) RevokePermission(ctx context.Context, userID, permissionID int64) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "RevokePermission", func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewRaw(`
			DELETE FROM gatekit_user_permissions up USING gatekit_users u
			WHERE up.user_id = u.id AND u.external_id = ? AND up.permission_id = ?`,
			userID, permissionID,
		).Exec(ctx)
		changed = rowsChanged(res)
		return err
	})
	return changed, err
}

// AddRolePermission bundles a permission into a role and returns the role's holders,
// read in the same transaction.
func (s *BunStore) AddRolePermission(ctx context.Context, roleID, permissionID int64) (bool, []int64, error) {
	var (
		changed bool
		holders []int64
	)
	err := s.inTx(ctx, "AddRolePermission", func(ctx context.Context, tx bun.Tx) error {
		if err := lockRoleForUpdate(ctx, tx, roleID); err != nil {
			return err
		}
		if err := lockRow(ctx, tx, "gatekit_permissions", permissionID); err != nil {
			return err
		}
		res, err := tx.NewRaw(
			"INSERT INTO gatekit_role_permissions (role_id, permission_id) VALUES (?, ?) ON CONFLICT (role_id, permission_id) DO NOTHING",
			roleID, permissionID,
		).Exec(ctx)
		if err != nil {
			return err
		}
		changed = rowsChanged(res)
		holders, err = scanIDs(ctx, tx, roleHoldersSQL, roleID)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return changed, holders, nil
}

// RemoveRolePermission unbundles a permission from a role.
func (s *BunStore) RemoveRolePermission(ctx context.Context, roleID, permissionID int64) (bool, []int64, error) {
	var (
		changed bool
		holders []int64
	)
	err := s.inTx(ctx, "RemoveRolePermission", func(ctx context.Context, tx bun.Tx) error {
		if err := lockRoleForUpdate(ctx, tx, roleID); err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}
		res, err := tx.NewRaw(
			"DELETE FROM gatekit_role_permissions WHERE role_id = ? AND permission_id = ?",
			roleID, permissionID,
		).Exec(ctx)
		if err != nil {
			return err
		}
		changed = rowsChanged(res)
		holders, err = scanIDs(ctx, tx, roleHoldersSQL, roleID)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return changed, holders, nil
}
