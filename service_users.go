package gatekit

import (
	"context"
)

// ============================================================================
// USER LIFECYCLE
// ============================================================================

// UpsertUser records a user seen by the transport layer, creating the row on
// first contact and refreshing the profile afterwards.
func (s *Service) UpsertUser(ctx context.Context, profile UserProfile) (*User, error) {
	if err := Validator().Struct(profile); err != nil {
		return nil, NewError(ErrInvalidName, "invalid user profile").WithUser(profile.ExternalID).WithCause(err)
	}
	user, err := s.store.UpsertUser(ctx, profile)
	if err != nil {
		return nil, asStorageError("UpsertUser", err)
	}
	return user, nil
}

// GetUser loads a user by external id.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil && !IsNotFound(err) {
		return nil, asStorageError("FindUser", err)
	}
	return user, err
}

// TouchUser records activity for a user.
func (s *Service) TouchUser(ctx context.Context, userID int64) error {
	err := s.store.TouchUser(ctx, userID)
	if err != nil && !IsNotFound(err) {
		return asStorageError("TouchUser", err)
	}
	return err
}

// ActivateUser marks a user active.
func (s *Service) ActivateUser(ctx context.Context, userID int64) error {
	return s.setUserFlag(ctx, userID, func(ctx context.Context) error {
		return s.store.SetUserActive(ctx, userID, true)
	})
}

// DeactivateUser marks a user inactive. Users are deactivated rather than
// deleted in normal operation. Grants are kept.
func (s *Service) DeactivateUser(ctx context.Context, userID int64) error {
	return s.setUserFlag(ctx, userID, func(ctx context.Context) error {
		return s.store.SetUserActive(ctx, userID, false)
	})
}

// BlockUser marks a user blocked.
func (s *Service) BlockUser(ctx context.Context, userID int64) error {
	return s.setUserFlag(ctx, userID, func(ctx context.Context) error {
		return s.store.SetUserBlocked(ctx, userID, true)
	})
}

// UnblockUser clears the blocked flag.
func (s *Service) UnblockUser(ctx context.Context, userID int64) error {
	return s.setUserFlag(ctx, userID, func(ctx context.Context) error {
		return s.store.SetUserBlocked(ctx, userID, false)
	})
}

// setUserFlag runs a flag update through the mutation pipeline.
// The flags do not take part in resolution, so no cache entry is affected.
func (s *Service) setUserFlag(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	_, err := s.mutate(ctx, AuditEntry{Action: AuditActionUpdateUser, TargetUser: userID}, func(ctx context.Context) (mutationResult, error) {
		return mutationResult{changed: true}, fn(ctx)
	})
	return err
}

// DeleteUser removes a user and all of its role and permission associations.
// Deleting an unknown user is a no-op.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	_, err := s.mutate(ctx, AuditEntry{Action: AuditActionDeleteUser, TargetUser: userID}, func(ctx context.Context) (mutationResult, error) {
		deleted, err := s.store.DeleteUser(ctx, userID)
		return mutationResult{changed: deleted, affected: []int64{userID}}, err
	})
	return err
}
