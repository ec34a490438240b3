package gatekit

import (
	"context"
)

// ============================================================================
// USER GRANTS
// ============================================================================

// AssignRole gives a role to a user. The user and role must exist; assigning a
// role the user already holds is a no-op. The user's new permissions are
// visible to every caller once this returns.
//
// Example:
//
//	ctx = gatekit.WithActorID(ctx, adminID)
//	err := service.AssignRole(ctx, 42, "editor")
func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string) error {
	roleName = normalizeName(roleName)
	entry := AuditEntry{Action: AuditActionAssignRole, TargetUser: userID, Role: roleName}
	_, err := s.mutate(ctx, entry, func(ctx context.Context) (mutationResult, error) {
		role, err := s.findRole(ctx, roleName)
		if err != nil {
			return mutationResult{}, err
		}
		changed, err := s.store.AssignRole(ctx, userID, role.ID)
		return mutationResult{changed: changed, affected: []int64{userID}}, err
	})
	return err
}

// RevokeRole removes a role from a user. Revoking a role the user does not
// hold, or an unknown role, is a no-op.
func (s *Service) RevokeRole(ctx context.Context, userID int64, roleName string) error {
	roleName = normalizeName(roleName)
	entry := AuditEntry{Action: AuditActionRevokeRole, TargetUser: userID, Role: roleName}
	_, err := s.mutate(ctx, entry, func(ctx context.Context) (mutationResult, error) {
		role, err := s.findRole(ctx, roleName)
		if IsNotFound(err) {
			return mutationResult{}, nil
		}
		if err != nil {
			return mutationResult{}, err
		}
		changed, err := s.store.RevokeRole(ctx, userID, role.ID)
		return mutationResult{changed: changed, affected: []int64{userID}}, err
	})
	return err
}

// GrantPermission gives a permission directly to a user, independent of roles.
func (s *Service) GrantPermission(ctx context.Context, userID int64, permission string) error {
	permission = normalizeName(permission)
	entry := AuditEntry{Action: AuditActionGrantPermission, TargetUser: userID, Permission: permission}
	_, err := s.mutate(ctx, entry, func(ctx context.Context) (mutationResult, error) {
		perm, err := s.findPermission(ctx, permission)
		if err != nil {
			return mutationResult{}, err
		}
		changed, err := s.store.GrantPermission(ctx, userID, perm.ID)
		return mutationResult{changed: changed, affected: []int64{userID}}, err
	})
	return err
}

// RevokePermission removes a direct grant. A permission the user also gets
// through a role stays granted.
func (s *Service) RevokePermission(ctx context.Context, userID int64, permission string) error {
	permission = normalizeName(permission)
	entry := AuditEntry{Action: AuditActionRevokePermission, TargetUser: userID, Permission: permission}
	_, err := s.mutate(ctx, entry, func(ctx context.Context) (mutationResult, error) {
		perm, err := s.findPermission(ctx, permission)
		if IsNotFound(err) {
			return mutationResult{}, nil
		}
		if err != nil {
			return mutationResult{}, err
		}
		changed, err := s.store.RevokePermission(ctx, userID, perm.ID)
		return mutationResult{changed: changed, affected: []int64{userID}}, err
	})
	return err
}
