package gatekit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behavior every Store must share. newStore
// must return an empty store each time it is called.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.FindUser(ctx, 42)
		assert.True(t, IsNotFound(err))

		u, err := s.UpsertUser(ctx, UserProfile{ExternalID: 42, Username: "ann"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), u.ExternalID)
		assert.True(t, u.IsActive)

		u, err = s.UpsertUser(ctx, UserProfile{ExternalID: 42, Username: "ann2", FirstName: "Ann"})
		require.NoError(t, err)
		assert.Equal(t, "ann2", u.Username)
		assert.Equal(t, "Ann", u.FirstName)

		require.NoError(t, s.SetUserActive(ctx, 42, false))
		require.NoError(t, s.SetUserBlocked(ctx, 42, true))
		require.NoError(t, s.TouchUser(ctx, 42))
		u, err = s.FindUser(ctx, 42)
		require.NoError(t, err)
		assert.False(t, u.IsActive)
		assert.True(t, u.IsBlocked)

		assert.True(t, IsNotFound(s.SetUserActive(ctx, 43, true)))
		assert.True(t, IsNotFound(s.TouchUser(ctx, 43)))

		deleted, err := s.DeleteUser(ctx, 42)
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = s.DeleteUser(ctx, 42)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("catalog", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		roleID, err := s.CreateRole(ctx, "editor", "Edits")
		require.NoError(t, err)
		_, err = s.CreateRole(ctx, "editor", "")
		assert.True(t, IsAlreadyExists(err))

		role, created, err := s.EnsureRole(ctx, "editor", "ignored")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, roleID, role.ID)
		assert.Equal(t, "Edits", role.Description)

		permID, err := s.CreatePermission(ctx, "notes.edit", "")
		require.NoError(t, err)
		_, err = s.CreatePermission(ctx, "notes.edit", "")
		assert.True(t, IsAlreadyExists(err))

		perm, created, err := s.EnsurePermission(ctx, "notes.view", "Read")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, permID, perm.ID)

		found, err := s.FindPermissionByName(ctx, "notes.edit")
		require.NoError(t, err)
		assert.Equal(t, permID, found.ID)
		_, err = s.FindPermissionByName(ctx, "notes.delete")
		assert.True(t, IsNotFound(err))
		_, err = s.FindRoleByName(ctx, "ghost")
		assert.True(t, IsNotFound(err))

		perms, err := s.ListPermissions(ctx, NewListFilter().WithModule("notes"))
		require.NoError(t, err)
		require.Len(t, perms, 2)
		assert.Equal(t, "notes.edit", perms[0].Name)

		roles, err := s.ListRoles(ctx, NewListFilter().WithPrefix("ed"))
		require.NoError(t, err)
		require.Len(t, roles, 1)

		deleted, _, err := s.DeleteRole(ctx, roleID)
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, _, err = s.DeleteRole(ctx, roleID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("grants", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for _, id := range []int64{1, 2, 3} {
			_, err := s.UpsertUser(ctx, UserProfile{ExternalID: id})
			require.NoError(t, err)
		}
		editor, err := s.CreateRole(ctx, "editor", "")
		require.NoError(t, err)
		view, err := s.CreatePermission(ctx, "notes.view", "")
		require.NoError(t, err)
		edit, err := s.CreatePermission(ctx, "notes.edit", "")
		require.NoError(t, err)

		changed, err := s.AssignRole(ctx, 1, editor)
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = s.AssignRole(ctx, 1, editor)
		require.NoError(t, err)
		assert.False(t, changed, "second assign is a no-op")
		_, err = s.AssignRole(ctx, 2, editor)
		require.NoError(t, err)

		_, err = s.AssignRole(ctx, 99, editor)
		assert.True(t, IsNotFound(err), "unknown user")
		_, err = s.AssignRole(ctx, 1, editor+1000)
		assert.True(t, IsNotFound(err), "unknown role")

		changed, holders, err := s.AddRolePermission(ctx, editor, edit)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []int64{1, 2}, holders)
		_, _, err = s.AddRolePermission(ctx, editor, edit+1000)
		assert.True(t, IsNotFound(err))

		changed, err = s.GrantPermission(ctx, 3, view)
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = s.GrantPermission(ctx, 3, view)
		require.NoError(t, err)
		assert.False(t, changed)
		_, err = s.GrantPermission(ctx, 99, view)
		assert.True(t, IsNotFound(err))

		direct, err := s.DirectPermissionNames(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.view"}, direct.Names())
		viaRoles, err := s.RolePermissionNames(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.edit"}, viaRoles.Names())

		names, err := s.UserRoleNames(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"editor"}, names)
		names, err = s.RolePermissionNamesOf(ctx, editor)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.edit"}, names)
		ids, err := s.RoleHolders(ctx, editor)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)

		changed, err = s.RevokeRole(ctx, 2, editor)
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = s.RevokeRole(ctx, 2, editor)
		require.NoError(t, err)
		assert.False(t, changed)

		changed, err = s.RevokePermission(ctx, 3, edit)
		require.NoError(t, err)
		assert.False(t, changed, "never granted")

		changed, holders, err = s.RemoveRolePermission(ctx, editor, edit)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []int64{1}, holders)
	})

	t.Run("cascades", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for _, id := range []int64{1, 2, 3} {
			_, err := s.UpsertUser(ctx, UserProfile{ExternalID: id})
			require.NoError(t, err)
		}
		editor, err := s.CreateRole(ctx, "editor", "")
		require.NoError(t, err)
		edit, err := s.CreatePermission(ctx, "notes.edit", "")
		require.NoError(t, err)
		_, _, err = s.AddRolePermission(ctx, editor, edit)
		require.NoError(t, err)
		_, err = s.AssignRole(ctx, 1, editor)
		require.NoError(t, err)
		_, err = s.GrantPermission(ctx, 3, edit)
		require.NoError(t, err)

		deleted, holders, err := s.DeletePermission(ctx, edit)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, []int64{1, 3}, holders)

		viaRoles, err := s.RolePermissionNames(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, viaRoles.Len())
		direct, err := s.DirectPermissionNames(ctx, 3)
		require.NoError(t, err)
		assert.Zero(t, direct.Len())

		deleted, holders, err = s.DeleteRole(ctx, editor)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, []int64{1}, holders)

		names, err := s.UserRoleNames(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, names)

		// Deleting a user drops its associations too.
		viewer, err := s.CreateRole(ctx, "viewer", "")
		require.NoError(t, err)
		_, err = s.AssignRole(ctx, 2, viewer)
		require.NoError(t, err)
		_, err = s.DeleteUser(ctx, 2)
		require.NoError(t, err)
		ids, err := s.RoleHolders(ctx, viewer)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
