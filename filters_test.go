package gatekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewListFilter tests creating a new list filter
func TestNewListFilter(t *testing.T) {
	filter := NewListFilter()

	assert.Equal(t, 100, filter.Limit)
	assert.Equal(t, 0, filter.Offset)
	assert.Equal(t, "", filter.Module)
	assert.Equal(t, "", filter.Prefix)
}

// TestListFilterBuilders tests that builders return modified copies
func TestListFilterBuilders(t *testing.T) {
	base := NewListFilter()

	result := base.WithModule("notes").WithPrefix("notes.e").WithPagination(10, 20)

	assert.Equal(t, "notes", result.Module)
	assert.Equal(t, "notes.e", result.Prefix)
	assert.Equal(t, 10, result.Limit)
	assert.Equal(t, 20, result.Offset)
	assert.Equal(t, "", base.Module) // original unchanged

	assert.Equal(t, 5, base.WithLimit(5).Limit)
	assert.Equal(t, 7, base.WithOffset(7).Offset)
}

// TestListFilterMatches tests in-memory filtering
func TestListFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		input  string
		want   bool
	}{
		{"empty filter", NewListFilter(), "notes.edit", true},
		{"module match", NewListFilter().WithModule("notes"), "notes.edit", true},
		{"module mismatch", NewListFilter().WithModule("notes"), "notesx.edit", false},
		{"module on role name", NewListFilter().WithModule("notes"), "editor", false},
		{"prefix match", NewListFilter().WithPrefix("ed"), "editor", true},
		{"prefix mismatch", NewListFilter().WithPrefix("ad"), "editor", false},
		{"prefix longer than name", NewListFilter().WithPrefix("editors"), "editor", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.matches(tt.input))
		})
	}
}

// TestLikePattern tests escaping of LIKE metacharacters
func TestLikePattern(t *testing.T) {
	assert.Equal(t, "notes.%", likePattern("notes."))
	assert.Equal(t, `a\_b\%%`, likePattern("a_b%"))
	assert.Equal(t, `x\\%`, likePattern(`x\`))
}
