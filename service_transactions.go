package gatekit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// mutationResult is what a store mutation reports back to the pipeline.
type mutationResult struct {
	changed  bool
	affected []int64
}

// mutate runs one administrative mutation through the common pipeline:
//
//  1. attach a request id and resolve the actor
//  2. run fn, retrying transient storage failures
//  3. on success, invalidate every affected user before returning; after a
//     retry, invalidate even when the last attempt changed nothing
//  4. record statistics and metrics, then write the audit line
//
// fn must be safe to re-run; the store's writes are idempotent.
func (s *Service) mutate(ctx context.Context, entry AuditEntry, fn func(ctx context.Context) (mutationResult, error)) (mutationResult, error) {
	ctx = EnsureRequestID(ctx)
	entry.RequestID = GetRequestID(ctx)

	actor, ok := GetActorID(ctx)
	if !ok && s.requireActor {
		return mutationResult{}, NewError(ErrNoActorID, "actor ID required for "+string(entry.Action))
	}
	entry.ActorID = actor

	start := time.Now()
	var (
		res      mutationResult
		err      error
		attempts int
	)
	for attempts = 1; ; attempts++ {
		res, err = fn(ctx)
		if err == nil || !isTransientError(err) || attempts >= s.retry.MaxAttempts || ctx.Err() != nil {
			break
		}
		s.logger.WithFields(logrus.Fields{
			"op":         string(entry.Action),
			"attempt":    attempts,
			"request_id": entry.RequestID,
			"error":      err.Error(),
		}).Warn("transient storage failure; retrying")
		if serr := sleepCtx(ctx, backoff(s.retry.Backoff, attempts-1)); serr != nil {
			break
		}
	}

	switch {
	case err == nil && res.changed:
		err = s.invalidate(ctx, res.affected)
	case attempts > 1 || isTransientError(err):
		// An attempt may have committed before its error came back.
		if ierr := s.invalidateAfterRetry(ctx, res.affected); err == nil {
			err = ierr
		}
	}

	s.monitor.record(string(entry.Action), time.Since(start), attempts, res.changed, err)
	s.metrics.recordMutation(string(entry.Action), err)

	if err != nil {
		log := s.logger.WithFields(logrus.Fields{
			"op":         string(entry.Action),
			"actor":      entry.ActorID,
			"request_id": entry.RequestID,
			"error":      err.Error(),
		})
		if IsStorageUnavailable(err) {
			log.Error("rbac mutation failed")
		} else {
			log.Info("rbac mutation rejected")
		}
		return res, err
	}

	entry.Changed = res.changed
	entry.Affected = len(res.affected)
	_ = s.logAudit(entry)
	return res, nil
}
