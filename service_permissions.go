package gatekit

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// PERMISSION QUERIES
// ============================================================================

// UserHasPermission reports whether the user may perform the action guarded by
// the named permission.
//
// A super-admin is granted everything without touching storage. A name that
// was never registered resolves to false with a warning. When storage fails or
// times out the answer is false together with ErrStorageUnavailable.
//
// Example:
//
//	ok, err := service.UserHasPermission(ctx, 42, "notes.edit")
func (s *Service) UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	d, err := s.Check(ctx, userID, permission)
	return d.Granted, err
}

// Check is UserHasPermission returning the full Decision, including where the
// answer came from.
func (s *Service) Check(ctx context.Context, userID int64, permission string) (Decision, error) {
	permission = normalizeName(permission)
	d, err := s.check(ctx, userID, permission)
	if err != nil {
		d = Decision{UserID: userID, Permission: permission, Source: SourceError}
	}
	s.metrics.recordDecision(d.Granted, d.Source)
	return d, err
}

func (s *Service) check(ctx context.Context, userID int64, permission string) (Decision, error) {
	if s.IsSuperAdmin(userID) {
		return Decision{UserID: userID, Permission: permission, Granted: true, Source: SourceSuperAdmin}, nil
	}

	if _, err := s.lookupPermission(ctx, permission); err != nil {
		if IsNotFound(err) || IsInvalid(err) {
			s.logger.WithFields(logrus.Fields{
				"user":       userID,
				"permission": permission,
			}).Warn("permission is not registered; denying")
			return Decision{UserID: userID, Permission: permission, Source: SourceUnknown}, nil
		}
		return Decision{}, s.degraded(userID, permission, err)
	}

	cacheable := s.decisionTTL > 0
	epoch, err := s.cache.Epoch(ctx, userID)
	if err != nil {
		s.cacheFailed("epoch", userID, err)
		cacheable = false
	}

	if cacheable {
		granted, ok, err := s.cache.Get(ctx, userID, permission)
		switch {
		case err != nil:
			s.cacheFailed("get", userID, err)
			cacheable = false
		case ok:
			s.metrics.recordCache(true)
			return Decision{UserID: userID, Permission: permission, Granted: granted, Source: SourceCache}, nil
		default:
			s.metrics.recordCache(false)
		}
	}

	key := fmt.Sprintf("%d:%s:%d:%t", userID, permission, epoch, cacheable)
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.resolveFromStore(ctx, userID, permission, epoch, cacheable)
	})

	select {
	case <-ctx.Done():
		return Decision{}, s.degraded(userID, permission, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Decision{}, s.degraded(userID, permission, res.Err)
		}
		return res.Val.(Decision), nil
	}
}

// resolveFromStore reads both grant sets and caches the result under epoch.
// It runs detached from the caller's cancellation because other callers may
// be waiting on the same flight; the query timeout still bounds it.
func (s *Service) resolveFromStore(ctx context.Context, userID int64, permission string, epoch uint64, cacheable bool) (Decision, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
	defer cancel()

	direct, err := s.timedRead(ctx, "DirectPermissionNames", func(ctx context.Context) (PermissionSet, error) {
		return s.store.DirectPermissionNames(ctx, userID)
	})
	if err != nil {
		return Decision{}, err
	}
	viaRoles, err := s.timedRead(ctx, "RolePermissionNames", func(ctx context.Context) (PermissionSet, error) {
		return s.store.RolePermissionNames(ctx, userID)
	})
	if err != nil {
		return Decision{}, err
	}

	d := Explain(userID, direct, viaRoles, permission)
	if cacheable {
		if err := s.cache.Put(ctx, userID, permission, d.Granted, s.decisionTTL, epoch); err != nil {
			s.cacheFailed("put", userID, err)
		}
	}
	return d, nil
}

func (s *Service) timedRead(ctx context.Context, op string, fn func(context.Context) (PermissionSet, error)) (PermissionSet, error) {
	start := time.Now()
	set, err := fn(ctx)
	s.metrics.recordStore(op, start, err)
	if err != nil {
		return PermissionSet{}, asStorageError(op, err)
	}
	return set, nil
}

// lookupPermission resolves a permission name through the catalog cache.
// Only positive results are cached so a newly created permission is visible at once.
func (s *Service) lookupPermission(ctx context.Context, name string) (*Permission, error) {
	if err := ValidatePermissionName(name); err != nil {
		return nil, err
	}
	if p, ok := s.catalog.Get(name); ok {
		return p, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	p, err := s.store.FindPermissionByName(ctx, name)
	s.metrics.recordStore("FindPermissionByName", start, err)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, asStorageError("FindPermissionByName", err)
	}
	s.catalog.Add(name, p)
	return p, nil
}

// degraded logs a failed decision and returns the error callers see.
func (s *Service) degraded(userID int64, permission string, err error) error {
	err = asStorageError("UserHasPermission", err)
	s.logger.WithFields(logrus.Fields{
		"user":       userID,
		"permission": permission,
		"degraded":   true,
		"error":      err.Error(),
	}).Error("permission check failed; denying")
	return err
}

func (s *Service) cacheFailed(op string, userID int64, err error) {
	s.metrics.recordCacheError(op)
	s.logger.WithFields(logrus.Fields{
		"op":    op,
		"user":  userID,
		"error": err.Error(),
	}).Warn("decision cache unavailable; reading from store")
}

// ============================================================================
// MULTI-PERMISSION QUERIES
// ============================================================================

// HasAnyPermission reports whether the user holds at least one of the permissions.
// A storage error is returned only when no permission was granted.
func (s *Service) HasAnyPermission(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	var firstErr error
	for _, p := range permissions {
		ok, err := s.UserHasPermission(ctx, userID, p)
		if ok {
			return true, nil
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return false, firstErr
}

// HasAllPermissions reports whether the user holds every permission.
// An empty list is trivially satisfied.
func (s *Service) HasAllPermissions(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	for _, p := range permissions {
		ok, err := s.UserHasPermission(ctx, userID, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Checker returns a Checker bound to one user.
func (s *Service) Checker(userID int64) *Checker {
	return NewChecker(s, userID)
}
