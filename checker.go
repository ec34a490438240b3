package gatekit

import "context"

// Checker provides permission checking for one user.
// It is typically created by the middleware and stored in context for use in handlers.
// Checks go through the Service, so they share its cache and fail-closed rules.
type Checker struct {
	userID  int64
	service *Service
}

// NewChecker creates a new Checker for a user.
func NewChecker(service *Service, userID int64) *Checker {
	return &Checker{
		userID:  userID,
		service: service,
	}
}

// UserID returns the user ID this checker is for.
func (c *Checker) UserID() int64 {
	return c.userID
}

// Can checks a permission and reports storage failures.
//
// Example:
//
//	ok, err := checker.Can(ctx, "notes.edit")
//	if err != nil {
//	    // could not determine
//	}
func (c *Checker) Can(ctx context.Context, permission string) (bool, error) {
	return c.service.UserHasPermission(ctx, c.userID, permission)
}

// HasPermission checks a permission, treating "could not determine" as denied.
//
// Example:
//
//	if checker.HasPermission(ctx, "notes.edit") {
//	    // User can edit notes
//	}
func (c *Checker) HasPermission(ctx context.Context, permission string) bool {
	ok, _ := c.Can(ctx, permission)
	return ok
}

// HasAnyPermission checks if the user has any of the specified permissions.
//
// Example:
//
//	if checker.HasAnyPermission(ctx, "notes.edit", "notes.delete") {
//	    // User has at least one of these permissions
//	}
func (c *Checker) HasAnyPermission(ctx context.Context, permissions ...string) bool {
	ok, _ := c.service.HasAnyPermission(ctx, c.userID, permissions...)
	return ok
}

// HasAllPermissions checks if the user has all of the specified permissions.
func (c *Checker) HasAllPermissions(ctx context.Context, permissions ...string) bool {
	ok, _ := c.service.HasAllPermissions(ctx, c.userID, permissions...)
	return ok
}

// Explain returns the decision together with where it came from.
func (c *Checker) Explain(ctx context.Context, permission string) (Decision, error) {
	return c.service.Check(ctx, c.userID, permission)
}

// Roles returns the names of the roles the user holds.
func (c *Checker) Roles(ctx context.Context) ([]string, error) {
	return c.service.UserRoles(ctx, c.userID)
}

// Permissions returns every permission the user holds, direct or via a role.
func (c *Checker) Permissions(ctx context.Context) ([]string, error) {
	return c.service.EffectivePermissions(ctx, c.userID)
}

// IsSuperAdmin reports whether the user bypasses every check.
func (c *Checker) IsSuperAdmin() bool {
	return c.service.IsSuperAdmin(c.userID)
}
