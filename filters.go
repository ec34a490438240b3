package gatekit

// ListFilter provides options for catalog list queries.
type ListFilter struct {
	// Filter permissions by module ("notes" matches "notes.*")
	Module string

	// Filter by name prefix
	Prefix string

	// Pagination
	Limit  int
	Offset int
}

// NewListFilter creates a new ListFilter with default values.
func NewListFilter() ListFilter {
	return ListFilter{
		Limit: 100,
	}
}

// WithModule sets the module filter. It only applies to permissions.
func (f ListFilter) WithModule(module string) ListFilter {
	f.Module = module
	return f
}

// WithPrefix sets the name prefix filter.
func (f ListFilter) WithPrefix(prefix string) ListFilter {
	f.Prefix = prefix
	return f
}

// WithLimit sets the limit for results.
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f ListFilter) WithPagination(limit, offset int) ListFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// likePattern escapes LIKE metacharacters in s and appends a trailing wildcard.
func likePattern(s string) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(append(out, '%'))
}

// matches applies the filter to a name in memory.
func (f ListFilter) matches(name string) bool {
	if f.Module != "" {
		module, _, ok := SplitPermission(name)
		if !ok || module != f.Module {
			return false
		}
	}
	if f.Prefix != "" && (len(name) < len(f.Prefix) || name[:len(f.Prefix)] != f.Prefix) {
		return false
	}
	return true
}
