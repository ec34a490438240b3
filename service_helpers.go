package gatekit

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// asStorageError makes sure an infrastructure failure carries ErrStorageUnavailable.
func asStorageError(op string, err error) error {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return NewError(ErrStorageUnavailable, "").WithOp(op).WithCause(err)
}

// logAudit writes one audit line. It runs after the mutation committed and
// never fails the mutation.
func (s *Service) logAudit(entry AuditEntry) error {
	fields := logrus.Fields{
		"audit":      true,
		"op":         string(entry.Action),
		"actor":      entry.ActorID,
		"changed":    entry.Changed,
		"affected":   entry.Affected,
		"request_id": entry.RequestID,
	}
	if entry.TargetUser != 0 {
		fields["target"] = entry.TargetUser
	}
	if entry.Role != "" {
		fields["role"] = entry.Role
	}
	if entry.Permission != "" {
		fields["permission"] = entry.Permission
	}
	s.logger.WithFields(fields).Info("rbac mutation")
	return nil
}

// invalidate drops cached decisions for users whose effective permissions may
// have changed. If the targeted invalidation fails the whole cache is purged;
// only when that also fails is an error returned.
//
// The change is already committed, so invalidation runs even if the caller's
// context is done.
func (s *Service) invalidate(ctx context.Context, users []int64) error {
	if len(users) == 0 {
		return nil
	}
	ctx, cancel := s.invalidationContext(ctx)
	defer cancel()

	err := s.cache.InvalidateUsers(ctx, users)
	if err == nil {
		s.metrics.recordInvalidations(len(users))
		return nil
	}
	s.metrics.recordCacheError("invalidate")
	s.logger.WithFields(logrus.Fields{
		"users": len(users),
		"error": err.Error(),
	}).Error("cache invalidation failed; purging")

	if perr := s.cache.Purge(ctx); perr != nil {
		s.metrics.recordCacheError("purge")
		return NewError(ErrStorageUnavailable, "change committed but cached decisions could not be invalidated").
			WithCause(errors.Join(err, perr))
	}
	return nil
}

// invalidateAfterRetry handles a mutation that needed more than one attempt.
// The users affected by a lost earlier commit are unknown when the last
// attempt reports none, so the whole cache is purged.
func (s *Service) invalidateAfterRetry(ctx context.Context, users []int64) error {
	if len(users) > 0 {
		return s.invalidate(ctx, users)
	}
	ctx, cancel := s.invalidationContext(ctx)
	defer cancel()

	if err := s.cache.Purge(ctx); err != nil {
		s.metrics.recordCacheError("purge")
		s.logger.WithField("error", err.Error()).Error("cache purge after retry failed")
		return NewError(ErrStorageUnavailable, "cached decisions could not be purged after retry").WithCause(err)
	}
	return nil
}

func (s *Service) invalidationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
}

// isTransientError reports whether a failed mutation may succeed if retried.
func isTransientError(err error) bool {
	if err == nil || !errors.Is(err, ErrStorageUnavailable) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection",
		"timeout",
		"deadlock",
		"could not serialize",
		"lock wait timeout",
		"broken pipe",
		"temporary failure",
		"try again",
		"resource temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// backoff returns the wait before retry attempt n (0-based), with 10% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base * time.Duration(1<<uint(attempt))
	jitter := time.Duration(float64(d) * 0.1 * (0.5 + rand.Float64()))
	return d + jitter
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
