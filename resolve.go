package gatekit

import "sort"

// PermissionSet is an immutable set of permission names.
// The zero value is an empty set.
type PermissionSet struct {
	names map[string]struct{}
}

// NewPermissionSet builds a set from names, dropping duplicates.
func NewPermissionSet(names ...string) PermissionSet {
	set := PermissionSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		set.names[n] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (s PermissionSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names in the set.
func (s PermissionSet) Len() int {
	return len(s.names)
}

// Union returns a new set holding the names of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := PermissionSet{names: make(map[string]struct{}, len(s.names)+len(other.names))}
	for n := range s.names {
		out.names[n] = struct{}{}
	}
	for n := range other.names {
		out.names[n] = struct{}{}
	}
	return out
}

// Names returns the names in sorted order.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Source names where a decision came from.
type Source string

const (
	SourceNone       Source = "none"
	SourceDirect     Source = "direct"
	SourceRole       Source = "role"
	SourceSuperAdmin Source = "superadmin"
	SourceCache      Source = "cache"
	SourceUnknown    Source = "unknown" // permission name never registered
	SourceError      Source = "error"   // storage failed, denied
)

// Decision is the outcome of a permission query.
type Decision struct {
	UserID     int64
	Permission string
	Granted    bool
	Source     Source
}

// Resolve decides whether name is granted by either the direct grants or the role-derived grants.
// There are no negative grants: absence from both sets means denial.
func Resolve(direct, viaRoles PermissionSet, name string) bool {
	return direct.Has(name) || viaRoles.Has(name)
}

// Explain is Resolve with the grant source attached.
// A direct grant wins over a role grant when both exist.
func Explain(userID int64, direct, viaRoles PermissionSet, name string) Decision {
	d := Decision{UserID: userID, Permission: name, Source: SourceNone}
	switch {
	case direct.Has(name):
		d.Granted, d.Source = true, SourceDirect
	case viaRoles.Has(name):
		d.Granted, d.Source = true, SourceRole
	}
	return d
}
