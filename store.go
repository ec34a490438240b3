package gatekit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// Store is the durable, transactional storage of users, roles, permissions and
// their three association tables. It is the single source of truth; only the
// Service may call its mutating methods, because they do not invalidate caches.
//
// User ids are external platform ids. Association methods are idempotent and
// report whether a row actually changed.
type Store interface {
	// Users
	FindUser(ctx context.Context, userID int64) (*User, error)
	UpsertUser(ctx context.Context, profile UserProfile) (*User, error)
	TouchUser(ctx context.Context, userID int64) error
	SetUserActive(ctx context.Context, userID int64, active bool) error
	SetUserBlocked(ctx context.Context, userID int64, blocked bool) error
	DeleteUser(ctx context.Context, userID int64) (bool, error)

	// Catalog
	FindPermissionByName(ctx context.Context, name string) (*Permission, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context, filter ListFilter) ([]Role, error)
	ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error)
	CreateRole(ctx context.Context, name, description string) (int64, error)
	CreatePermission(ctx context.Context, name, description string) (int64, error)
	EnsureRole(ctx context.Context, name, description string) (*Role, bool, error)
	EnsurePermission(ctx context.Context, name, description string) (*Permission, bool, error)
	DeleteRole(ctx context.Context, roleID int64) (bool, []int64, error)
	DeletePermission(ctx context.Context, permissionID int64) (bool, []int64, error)

	// Grants
	DirectPermissionNames(ctx context.Context, userID int64) (PermissionSet, error)
	RolePermissionNames(ctx context.Context, userID int64) (PermissionSet, error)
	UserRoleNames(ctx context.Context, userID int64) ([]string, error)
	RolePermissionNamesOf(ctx context.Context, roleID int64) ([]string, error)
	RoleHolders(ctx context.Context, roleID int64) ([]int64, error)
	AssignRole(ctx context.Context, userID, roleID int64) (bool, error)
	RevokeRole(ctx context.Context, userID, roleID int64) (bool, error)
	GrantPermission(ctx context.Context, userID, permissionID int64) (bool, error)
	RevokePermission(ctx context.Context, userID, permissionID int64) (bool, error)
	AddRolePermission(ctx context.Context, roleID, permissionID int64) (bool, []int64, error)
	RemoveRolePermission(ctx context.Context, roleID, permissionID int64) (bool, []int64, error)
}

// BunStore implements Store on top of bun with the Postgres dialect.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := gatekit.NewStore(db.Bun())
type BunStore struct {
	db bun.IDB
}

var _ Store = (*BunStore)(nil)

// NewStore creates a Store backed by a bun database handle.
func NewStore(db bun.IDB) *BunStore {
	return &BunStore{db: db}
}

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// inTx runs fn in a single transaction. Any error rolls the transaction back,
// so the caller observes no state change.
func (s *BunStore) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx bun.Tx) error) error {
	return classify(op, s.db.RunInTx(ctx, &sql.TxOptions{}, fn))
}

// classify maps driver errors onto the gatekit taxonomy.
// gatekit errors pass through, missing rows become ErrNotFound and
// everything else is ErrStorageUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) || dbkit.IsNotFound(err) {
		return NewError(ErrNotFound, "").WithOp(op)
	}
	return NewError(ErrStorageUnavailable, "").WithOp(op).WithCause(dbkit.WithErr1(err, op).Err())
}

// lockUser returns the surrogate id of an external user, holding a share lock
// until the transaction ends so a concurrent delete cannot orphan an insert.
func lockUser(ctx context.Context, tx bun.Tx, userID int64) (int64, error) {
	var id int64
	err := tx.NewRaw("SELECT id FROM gatekit_users WHERE external_id = ? FOR SHARE", userID).Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, userNotFound(userID)
	}
	return id, err
}

// lockRow checks that a role or permission row exists and share-locks it.
func lockRow(ctx context.Context, tx bun.Tx, table string, id int64) error {
	var got int64
	err := tx.NewRaw("SELECT id FROM ? WHERE id = ? FOR SHARE", bun.Ident(table), id).Scan(ctx, &got)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(ErrNotFound, table+" row")
	}
	return err
}

// lockRoleForUpdate takes an exclusive lock on a role row. Assignments
// share-lock the role, so holders read after this are complete until commit.
func lockRoleForUpdate(ctx context.Context, tx bun.Tx, roleID int64) error {
	var got int64
	err := tx.NewRaw("SELECT id FROM gatekit_roles WHERE id = ? FOR UPDATE", roleID).Scan(ctx, &got)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(ErrNotFound, "gatekit_roles row")
	}
	return err
}

func scanIDs(ctx context.Context, db bun.IDB, query string, args ...any) ([]int64, error) {
	var ids []int64
	err := db.NewRaw(query, args...).Scan(ctx, &ids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ids, err
}

func scanNames(ctx context.Context, db bun.IDB, query string, args ...any) ([]string, error) {
	var names []string
	err := db.NewRaw(query, args...).Scan(ctx, &names)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return names, err
}

func rowsChanged(res sql.Result) bool {
	if res == nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
