package gatekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUserDisplayName tests the display name fallbacks
func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"full name", User{FirstName: "Ann", LastName: "Lee", Username: "ann"}, "Ann Lee"},
		{"first name only", User{FirstName: "Ann", Username: "ann"}, "Ann"},
		{"username", User{Username: "ann"}, "@ann"},
		{"nothing", User{ExternalID: 42}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

// TestPermissionModule tests extracting the module prefix
func TestPermissionModule(t *testing.T) {
	assert.Equal(t, "notes", (&Permission{Name: "notes.edit"}).Module())
	assert.Equal(t, "downloads", (&Permission{Name: "downloads.file.get"}).Module())
	assert.Equal(t, "", (&Permission{Name: "broken"}).Module())
}

// TestUserProfileValidation tests the profile constraints used by UpsertUser
func TestUserProfileValidation(t *testing.T) {
	assert.NoError(t, Validator().Struct(UserProfile{ExternalID: 1}))
	assert.Error(t, Validator().Struct(UserProfile{}), "external id is required")
	assert.Error(t, Validator().Struct(UserProfile{ExternalID: 1, LanguageCode: "much-too-long"}))
}

// TestAuditActions tests that audit action names are stable
func TestAuditActions(t *testing.T) {
	actions := []AuditAction{
		AuditActionAssignRole,
		AuditActionRevokeRole,
		AuditActionGrantPermission,
		AuditActionRevokePermission,
		AuditActionAddRolePerm,
		AuditActionRemoveRolePerm,
		AuditActionCreateRole,
		AuditActionDeleteRole,
		AuditActionCreatePermission,
		AuditActionDeletePermission,
		AuditActionUpdateUser,
		AuditActionDeleteUser,
	}

	seen := map[AuditAction]bool{}
	for _, a := range actions {
		assert.NotEmpty(t, a)
		assert.False(t, seen[a], "duplicate action %q", a)
		seen[a] = true
	}
	assert.Equal(t, AuditAction("assign_role"), AuditActionAssignRole)
}
