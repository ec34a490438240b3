package gatekit

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for gatekit operations.
var (
	// ErrNotFound is returned when a referenced user, role, permission or
	// association does not exist.
	ErrNotFound = errors.New("gatekit: not found")

	// ErrAlreadyExists is returned when creating a role or permission whose name is taken.
	ErrAlreadyExists = errors.New("gatekit: already exists")

	// ErrStorageUnavailable is returned when the backing store cannot be reached,
	// a query times out, or a transaction cannot commit.
	ErrStorageUnavailable = errors.New("gatekit: storage unavailable")

	// ErrMisconfiguration marks a query for a permission name that was never registered.
	// It is logged, never returned from UserHasPermission.
	ErrMisconfiguration = errors.New("gatekit: misconfiguration")

	// ErrInvalidName is returned when a role name fails validation.
	ErrInvalidName = errors.New("gatekit: invalid name")

	// ErrInvalidPermission is returned when a permission name is not "<module>.<action>".
	ErrInvalidPermission = errors.New("gatekit: invalid permission")

	// ErrNoActorID is returned when an actor is required for audit but missing from context.
	ErrNoActorID = errors.New("gatekit: no actor ID in context")

	// ErrNoUserID is returned when a user ID is expected in context but missing.
	ErrNoUserID = errors.New("gatekit: no user ID in context")

	// ErrNotPermitted describes a denial at an HTTP boundary. Queries never return it.
	ErrNotPermitted = errors.New("gatekit: not permitted")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Op         string // Operation that failed
	Role       string // Role involved (if applicable)
	Permission string // Permission involved (if applicable)
	UserID     int64  // User involved (if applicable)
	Cause      error  // Driver or transport error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithOp records the operation name.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permission string) *Error {
	e.Permission = permission
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID int64) *Error {
	e.UserID = userID
	return e
}

// WithCause attaches the underlying driver error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// notFound builds an ErrNotFound for a named entity.
func notFound(kind, name string) *Error {
	return NewError(ErrNotFound, fmt.Sprintf("%s %q", kind, name))
}

// userNotFound builds an ErrNotFound for an external user id.
func userNotFound(userID int64) *Error {
	return NewError(ErrNotFound, "user "+strconv.FormatInt(userID, 10)).WithUser(userID)
}

// IsNotFound checks if an error reports a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error reports a name collision.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsStorageUnavailable checks if an error means the decision could not be determined.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsInvalid checks if an error is a validation failure for a role or permission name.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidName) || errors.Is(err, ErrInvalidPermission)
}
