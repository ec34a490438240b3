package gatekit

import (
	"context"
	"sort"
)

// ============================================================================
// DATA RETRIEVAL
// ============================================================================

// EffectivePermissions returns the sorted union of the user's direct and
// role-derived permission names. A super-admin gets every registered permission.
// Results are read from the store, never from the decision cache.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if s.IsSuperAdmin(userID) {
		perms, err := s.store.ListPermissions(ctx, ListFilter{})
		if err != nil {
			return nil, asStorageError("ListPermissions", err)
		}
		names := make([]string, 0, len(perms))
		for _, p := range perms {
			names = append(names, p.Name)
		}
		sort.Strings(names)
		return names, nil
	}

	direct, err := s.timedRead(ctx, "DirectPermissionNames", func(ctx context.Context) (PermissionSet, error) {
		return s.store.DirectPermissionNames(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	viaRoles, err := s.timedRead(ctx, "RolePermissionNames", func(ctx context.Context) (PermissionSet, error) {
		return s.store.RolePermissionNames(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return direct.Union(viaRoles).Names(), nil
}

// UserRoles returns the names of the roles a user holds.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	names, err := s.store.UserRoleNames(ctx, userID)
	if err != nil {
		return nil, asStorageError("UserRoleNames", err)
	}
	return names, nil
}

// RolePermissions returns the permission names bundled in a role.
func (s *Service) RolePermissions(ctx context.Context, roleName string) ([]string, error) {
	role, err := s.findRole(ctx, normalizeName(roleName))
	if err != nil {
		return nil, err
	}
	names, err := s.store.RolePermissionNamesOf(ctx, role.ID)
	if err != nil {
		return nil, asStorageError("RolePermissionNamesOf", err)
	}
	return names, nil
}

// RoleMembers returns the external ids of the users holding a role.
func (s *Service) RoleMembers(ctx context.Context, roleName string) ([]int64, error) {
	role, err := s.findRole(ctx, normalizeName(roleName))
	if err != nil {
		return nil, err
	}
	ids, err := s.store.RoleHolders(ctx, role.ID)
	if err != nil {
		return nil, asStorageError("RoleHolders", err)
	}
	return ids, nil
}

// ListRoles returns roles matching the filter, ordered by name.
func (s *Service) ListRoles(ctx context.Context, filter ListFilter) ([]Role, error) {
	roles, err := s.store.ListRoles(ctx, filter)
	if err != nil {
		return nil, asStorageError("ListRoles", err)
	}
	return roles, nil
}

// ListPermissions returns permissions matching the filter, ordered by name.
func (s *Service) ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error) {
	perms, err := s.store.ListPermissions(ctx, filter)
	if err != nil {
		return nil, asStorageError("ListPermissions", err)
	}
	return perms, nil
}

// CheckerFromContext creates a Checker using the user id from context.
func (s *Service) CheckerFromContext(ctx context.Context) (*Checker, error) {
	userID, ok := GetUserID(ctx)
	if !ok {
		return nil, ErrNoUserID
	}
	return s.Checker(userID), nil
}
