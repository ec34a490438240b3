// Package gatekit provides role-based access control backed by PostgreSQL.
//
// Users are identified by the numeric id of the external platform they come
// from. A user may be granted a permission directly or hold roles that bundle
// permissions; a user holds a permission when either path grants it. There
// are no negative grants and no role hierarchy.
//
// # Core Concepts
//
// Permission: a name of the shape "<module>.<action>", for example "notes.edit".
// Lowercase letters, digits and underscores only.
//
// Role: a named bundle of permissions. "superadmin" is reserved for Bootstrap.
//
// Super-admin: a configured user id that is granted every registered
// permission without consulting storage.
//
// # Basic Usage
//
//	// 1. Declare permissions and roles (at application startup)
//	registry := gatekit.NewRegistry()
//	registry.Module("notes").
//	    Permission("view", "Read notes").
//	    Permission("edit", "Create and edit notes")
//	registry.Role("editor", "Edits notes").Grants("notes.view", "notes.edit")
//
//	// 2. Open the service
//	inst, err := gatekit.Open(ctx, cfg, logger, prometheus.DefaultRegisterer)
//	defer inst.Close()
//
//	// 3. Run migrations and seed the catalog
//	inst.Migrate(ctx)
//	inst.Bootstrap(ctx, registry)
//
//	// 4. Grant
//	inst.AssignRole(ctx, 42, "editor")
//
//	// 5. Check
//	ok, err := inst.UserHasPermission(ctx, 42, "notes.edit")
//
// # Caching
//
// Decisions are cached per user and permission, in process or in Redis. Every
// mutation invalidates the users it affects before it returns, so a check
// made after a successful mutation never sees the old answer. Each user
// carries an epoch that mutations bump; a lookup that started before the bump
// cannot repopulate the cache with its outdated result.
//
// # Failure Mode
//
// When storage is unreachable or slow, checks deny and return
// ErrStorageUnavailable. A permission name that was never registered denies
// with a warning and no error.
//
// # Middleware Usage
//
//	mw := gatekit.NewMiddleware(service, gatekit.WithUserIDExtractor(gatekit.UserIDFromHeader("X-User-ID")))
//	mux.Handle("/notes", mw.RequirePermission("notes.edit")(handler))
//
// # Audit Log
//
// Every mutation is logged at info with the actor, the target, the operation
// and the request id taken from the context.
package gatekit
