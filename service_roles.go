package gatekit

import (
	"context"
)

// ============================================================================
// ROLE AND PERMISSION CATALOG
// ============================================================================

// CreateRole adds a role. It fails with ErrAlreadyExists if the name is taken.
//
// Example:
//
//	id, err := service.CreateRole(ctx, "editor", "Can edit notes")
//	if gatekit.IsAlreadyExists(err) {
//	    // pick another name
//	}
func (s *Service) CreateRole(ctx context.Context, name, description string) (int64, error) {
	name = normalizeName(name)
	if err := ValidateRoleName(name); err != nil {
		return 0, err
	}

	var (
		id      int64
		attempt int
	)
	_, err := s.mutate(ctx, AuditEntry{Action: AuditActionCreateRole, Role: name}, func(ctx context.Context) (mutationResult, error) {
		attempt++
		var err error
		id, err = s.store.CreateRole(ctx, name, description)
		if attempt > 1 && IsAlreadyExists(err) {
			// The earlier attempt committed before its error came back.
			role, ferr := s.store.FindRoleByName(ctx, name)
			if ferr != nil {
				return mutationResult{}, ferr
			}
			id, err = role.ID, nil
		}
		return mutationResult{changed: err == nil}, err
	})
	return id, err
}

// CreatePermission adds a permission. The name must have the "<module>.<action>" shape.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (int64, error) {
	name = normalizeName(name)
	if err := ValidatePermissionName(name); err != nil {
		return 0, err
	}

	var (
		id      int64
		attempt int
	)
	_, err := s.mutate(ctx, AuditEntry{Action: AuditActionCreatePermission, Permission: name}, func(ctx context.Context) (mutationResult, error) {
		attempt++
		var err error
		id, err = s.store.CreatePermission(ctx, name, description)
		if attempt > 1 && IsAlreadyExists(err) {
			perm, ferr := s.store.FindPermissionByName(ctx, name)
			if ferr != nil {
				return mutationResult{}, ferr
			}
			id, err = perm.ID, nil
		}
		return mutationResult{changed: err == nil}, err
	})
	return id, err
}

// EnsureRole returns the named role, creating it if needed. Repeated calls are no-ops.
func (s *Service) EnsureRole(ctx context.Context, name, description string) (*Role, error) {
	role, _, err := s.ensureRole(ctx, name, description)
	return role, err
}

func (s *Service) ensureRole(ctx context.Context, name, description string) (*Role, bool, error) {
	name = normalizeName(name)
	if err := ValidateRoleName(name); err != nil {
		return nil, false, err
	}

	var role *Role
	res, err := s.mutate(ctx, AuditEntry{Action: AuditActionCreateRole, Role: name}, func(ctx context.Context) (mutationResult, error) {
		r, created, err := s.store.EnsureRole(ctx, name, description)
		role = r
		return mutationResult{changed: created}, err
	})
	return role, res.changed, err
}

// EnsurePermission returns the named permission, creating it if needed.
// Modules call it at startup for every permission they declare.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (*Permission, error) {
	perm, _, err := s.ensurePermission(ctx, name, description)
	return perm, err
}

func (s *Service) ensurePermission(ctx context.Context, name, description string) (*Permission, bool, error) {
	name = normalizeName(name)
	if err := ValidatePermissionName(name); err != nil {
		return nil, false, err
	}

	var perm *Permission
	res, err := s.mutate(ctx, AuditEntry{Action: AuditActionCreatePermission, Permission: name}, func(ctx context.Context) (mutationResult, error) {
		p, created, err := s.store.EnsurePermission(ctx, name, description)
		perm = p
		return mutationResult{changed: created}, err
	})
	if err == nil && perm != nil {
		s.catalog.Add(perm.Name, perm)
	}
	return perm, res.changed, err
}

// DeleteRole removes a role and every association referencing it. Holders of
// the role lose the permissions it provided before this call returns.
// Deleting an unknown role is a no-op.
func (s *Service) DeleteRole(ctx context.Context, name string) error {
	name = normalizeName(name)
	_, err := s.mutate(ctx, AuditEntry{Action: AuditActionDeleteRole, Role: name}, func(ctx context.Context) (mutationResult, error) {
		role, err := s.findRole(ctx, name)
		if IsNotFound(err) {
			return mutationResult{}, nil
		}
		if err != nil {
			return mutationResult{}, err
		}
		deleted, holders, err := s.store.DeleteRole(ctx, role.ID)
		return mutationResult{changed: deleted, affected: holders}, err
	})
	return err
}

// DeletePermission removes a permission with its direct and role grants.
// Deleting an unknown permission is a no-op.
func (s *Service) DeletePermission(ctx context.Context, name string) error {
	name = normalizeName(name)
	_, err := s.mutate(ctx, AuditEntry{Action: AuditActionDeletePermission, Permission: name}, func(ctx context.Context) (mutationResult, error) {
		perm, err := s.findPermission(ctx, name)
		if IsNotFound(err) {
			return mutationResult{}, nil
		}
		if err != nil {
			return mutationResult{}, err
		}
		deleted, holders, err := s.store.DeletePermission(ctx, perm.ID)
		if err == nil {
			s.catalog.Remove(name)
		}
		return mutationResult{changed: deleted, affected: holders}, err
	})
	return err
}

// ============================================================================
// ROLE CONTENTS
// ============================================================================

// AddPermissionToRole bundles a permission into a role. Every holder of the
// role gains it before this call returns. Both must exist.
//
// Example:
//
//	err := service.AddPermissionToRole(ctx, "editor", "notes.edit")
func (s *Service) AddPermissionToRole(ctx context.Context, roleName, permission string) error {
	_, err := s.addPermissionToRole(ctx, roleName, permission)
	return err
}

func (s *Service) addPermissionToRole(ctx context.Context, roleName, permission string) (bool, error) {
	roleName, permission = normalizeName(roleName), normalizeName(permission)
	entry := AuditEntry{Action: AuditActionAddRolePerm, Role: roleName, Permission: permission}
	res, err := s.mutate(ctx, entry, func(ctx context.Context) (mutationResult, error) {
		role, err := s.findRole(ctx, roleName)
		if err != nil {
			return mutationResult{}, err
		}
		perm, err := s.findPermission(ctx, permission)
		if err != nil {
			return mutationResult{}, err
		}
		changed, holders, err := s.store.AddRolePermission(ctx, role.ID, perm.ID)
		return mutationResult{changed: changed, affected: holders}, err
	})
	return res.changed, err
}

// RemovePermissionFromRole unbundles a permission from a role. Holders keep it
// only if they are granted it some other way. Unknown names are a no-op.
func (s *Service) RemovePermissionFromRole(ctx context.Context, roleName, permission string) error {
	roleName, permission = normalizeName(roleName), normalizeName(permission)
	entry := AuditEntry{Action: AuditActionRemoveRolePerm, Role: roleName, Permission: permission}
	_, err := s.mutate(ctx, entry, func(ctx context.Context) (mutationResult, error) {
		role, err := s.findRole(ctx, roleName)
		if IsNotFound(err) {
			return mutationResult{}, nil
		}
		if err != nil {
			return mutationResult{}, err
		}
		perm, err := s.findPermission(ctx, permission)
		if IsNotFound(err) {
			return mutationResult{}, nil
		}
		if err != nil {
			return mutationResult{}, err
		}
		changed, holders, err := s.store.RemoveRolePermission(ctx, role.ID, perm.ID)
		return mutationResult{changed: changed, affected: holders}, err
	})
	return err
}

// findRole looks a role up for a mutation. Invalid names are reported as not found.
func (s *Service) findRole(ctx context.Context, name string) (*Role, error) {
	if err := ValidateRoleName(name); err != nil {
		return nil, notFound("role", name).WithRole(name)
	}
	role, err := s.store.FindRoleByName(ctx, name)
	if err != nil && !IsNotFound(err) {
		return nil, asStorageError("FindRoleByName", err)
	}
	return role, err
}

// findPermission bypasses the catalog cache so mutations see the store's current state.
func (s *Service) findPermission(ctx context.Context, name string) (*Permission, error) {
	if err := ValidatePermissionName(name); err != nil {
		return nil, notFound("permission", name).WithPermission(name)
	}
	perm, err := s.store.FindPermissionByName(ctx, name)
	if err != nil && !IsNotFound(err) {
		return nil, asStorageError("FindPermissionByName", err)
	}
	return perm, err
}
