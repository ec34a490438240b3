package gatekit

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for gatekit values.
type contextKey string

const (
	contextKeyUserID    contextKey = "gatekit:user_id"
	contextKeyActorID   contextKey = "gatekit:actor_id"
	contextKeyRequestID contextKey = "gatekit:request_id"
	contextKeyChecker   contextKey = "gatekit:checker"
)

// WithUserID adds the external id of the user being checked to the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID retrieves the user id from context.
// The boolean is false when no user id was set.
func GetUserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(contextKeyUserID).(int64)
	return v, ok
}

// MustGetUserID retrieves the user id from context.
// Panics if not set.
func MustGetUserID(ctx context.Context) int64 {
	userID, ok := GetUserID(ctx)
	if !ok {
		panic("gatekit: user ID not in context")
	}
	return userID
}

// WithActorID adds the id of the user performing a mutation, for audit.
func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor id from context.
// Falls back to the user id if the actor was not set explicitly.
func GetActorID(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(contextKeyActorID).(int64); ok {
		return v, true
	}
	return GetUserID(ctx)
}

// WithRequestID adds a request id to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// EnsureRequestID returns ctx unchanged when it already carries a request id,
// otherwise it attaches a new random one.
func EnsureRequestID(ctx context.Context) context.Context {
	if GetRequestID(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

// GetRequestID retrieves the request id from context.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return s
	}
	return ""
}

// WithChecker adds a Checker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// FromContext retrieves the Checker from context.
// Returns nil if not set.
func FromContext(ctx context.Context) *Checker {
	if c, ok := ctx.Value(contextKeyChecker).(*Checker); ok {
		return c
	}
	return nil
}
