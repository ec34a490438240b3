package gatekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	direct := NewPermissionSet("billing.view")
	viaRoles := NewPermissionSet("notes.view", "notes.edit")

	tests := []struct {
		permission string
		granted    bool
		source     Source
	}{
		{"billing.view", true, SourceDirect},
		{"notes.edit", true, SourceRole},
		{"notes.delete", false, SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.permission, func(t *testing.T) {
			assert.Equal(t, tt.granted, Resolve(direct, viaRoles, tt.permission))

			d := Explain(7, direct, viaRoles, tt.permission)
			assert.Equal(t, tt.granted, d.Granted)
			assert.Equal(t, tt.source, d.Source)
			assert.Equal(t, int64(7), d.UserID)
		})
	}
}

func TestExplainPrefersDirect(t *testing.T) {
	both := NewPermissionSet("notes.edit")
	d := Explain(1, both, both, "notes.edit")
	assert.Equal(t, SourceDirect, d.Source)
}

func TestResolveEmptySets(t *testing.T) {
	var empty PermissionSet
	assert.False(t, Resolve(empty, empty, "notes.view"))
	assert.Zero(t, empty.Len())
	assert.Empty(t, empty.Names())
}

func TestPermissionSet(t *testing.T) {
	a := NewPermissionSet("b.x", "a.x", "b.x")
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []string{"a.x", "b.x"}, a.Names())

	u := a.Union(NewPermissionSet("c.x", "a.x"))
	assert.Equal(t, []string{"a.x", "b.x", "c.x"}, u.Names())
	assert.Equal(t, 2, a.Len(), "union does not modify the receiver")
	assert.True(t, u.Has("c.x"))
	assert.False(t, a.Has("c.x"))
}
