package gatekit

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// SuperAdminRole is the built-in role that Bootstrap keeps bundled with every
// registered permission.
const SuperAdminRole = "superadmin"

// Registry collects the permissions modules declare and the roles built from
// them. It is filled at startup and handed to Service.Bootstrap.
//
// Names are validated as they are registered. The fluent builders cannot
// return errors, so problems are collected and reported by Validate.
type Registry struct {
	mu          sync.RWMutex
	permissions map[string]PermissionDefinition
	modules     map[string]*ModuleDefinition
	roles       map[string]*RoleDefinition
	errs        []error
}

// PermissionDefinition is a declared permission.
type PermissionDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ModuleDefinition declares the permissions of one feature module.
type ModuleDefinition struct {
	name     string
	registry *Registry
}

// RoleDefinition declares a role and the permissions it bundles.
type RoleDefinition struct {
	name        string
	description string
	grants      []string
	registry    *Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		permissions: make(map[string]PermissionDefinition),
		modules:     make(map[string]*ModuleDefinition),
		roles:       make(map[string]*RoleDefinition),
	}
}

// Module starts declaring permissions for a module.
// Calling it again with the same name continues the same module.
//
// Example:
//
//	registry.Module("notes").
//	    Permission("view", "Read notes").
//	    Permission("edit", "Create and edit notes")
func (r *Registry) Module(name string) *ModuleDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = normalizeName(name)
	if m, ok := r.modules[name]; ok {
		return m
	}
	m := &ModuleDefinition{name: name, registry: r}
	r.modules[name] = m
	return m
}

// Permission declares "<module>.<action>".
func (m *ModuleDefinition) Permission(action, description string) *ModuleDefinition {
	m.registry.addPermission(JoinPermission(m.name, normalizeName(action)), description)
	return m
}

// Module switches to another module (for chaining).
func (m *ModuleDefinition) Module(name string) *ModuleDefinition {
	return m.registry.Module(name)
}

// Role switches to declaring a role (for chaining).
func (m *ModuleDefinition) Role(name, description string) *RoleDefinition {
	return m.registry.Role(name, description)
}

// Name returns the module name.
func (m *ModuleDefinition) Name() string {
	return m.name
}

// AddPermission declares a permission by its full name.
func (r *Registry) AddPermission(name, description string) *Registry {
	r.addPermission(normalizeName(name), description)
	return r
}

func (r *Registry) addPermission(name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ValidatePermissionName(name); err != nil {
		r.errs = append(r.errs, err)
		return
	}
	if existing, ok := r.permissions[name]; ok && existing.Description != "" && description == "" {
		return
	}
	r.permissions[name] = PermissionDefinition{Name: name, Description: description}
}

// Role starts declaring a role. Calling it again with the same name continues
// the same role; a non-empty description replaces the previous one.
//
// Example:
//
//	registry.Role("editor", "Edits notes").Grants("notes.view", "notes.edit")
func (r *Registry) Role(name, description string) *RoleDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = normalizeName(name)
	if err := ValidateRoleName(name); err != nil {
		r.errs = append(r.errs, err)
	}
	if name == SuperAdminRole {
		r.errs = append(r.errs, NewError(ErrInvalidName, "role name is reserved").WithRole(name))
	}

	if rd, ok := r.roles[name]; ok {
		if description != "" {
			rd.description = description
		}
		return rd
	}
	rd := &RoleDefinition{name: name, description: description, registry: r}
	r.roles[name] = rd
	return rd
}

// Grants bundles permissions into the role. Each must be registered by the
// time Validate runs.
func (rd *RoleDefinition) Grants(permissions ...string) *RoleDefinition {
	rd.registry.mu.Lock()
	defer rd.registry.mu.Unlock()

	for _, p := range permissions {
		p = normalizeName(p)
		if !containsString(rd.grants, p) {
			rd.grants = append(rd.grants, p)
		}
	}
	return rd
}

// Role switches to another role (for chaining).
func (rd *RoleDefinition) Role(name, description string) *RoleDefinition {
	return rd.registry.Role(name, description)
}

// Module switches to declaring a module (for chaining).
func (rd *RoleDefinition) Module(name string) *ModuleDefinition {
	return rd.registry.Module(name)
}

// Name returns the role name.
func (rd *RoleDefinition) Name() string {
	return rd.name
}

// Description returns the role description.
func (rd *RoleDefinition) Description() string {
	return rd.description
}

// GetGrants returns a copy of the permissions bundled in the role.
func (rd *RoleDefinition) GetGrants() []string {
	rd.registry.mu.RLock()
	defer rd.registry.mu.RUnlock()
	return append([]string(nil), rd.grants...)
}

// Permissions returns every declared permission, sorted by name.
func (r *Registry) Permissions() []PermissionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PermissionDefinition, 0, len(r.permissions))
	for _, p := range r.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PermissionNames returns every declared permission name, sorted.
func (r *Registry) PermissionNames() []string {
	defs := r.Permissions()
	names := make([]string, len(defs))
	for i, p := range defs {
		names[i] = p.Name
	}
	return names
}

// HasPermission reports whether a permission was declared.
func (r *Registry) HasPermission(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.permissions[name]
	return ok
}

// Roles returns every declared role, sorted by name.
func (r *Registry) Roles() []*RoleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*RoleDefinition, 0, len(r.roles))
	for _, rd := range r.roles {
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// GetRole returns a declared role, or nil.
func (r *Registry) GetRole(name string) *RoleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[name]
}

// Modules returns the declared module names, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports every invalid name seen during registration and every role
// grant that names an undeclared permission.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := append([]error(nil), r.errs...)
	for _, rd := range r.roles {
		for _, p := range rd.grants {
			if _, ok := r.permissions[p]; !ok {
				errs = append(errs, fmt.Errorf("%w: role %q grants undeclared permission %q", ErrNotFound, rd.name, p))
			}
		}
	}
	return errors.Join(errs...)
}

// Merge copies the declarations of other into r.
func (r *Registry) Merge(other *Registry) *Registry {
	for _, p := range other.Permissions() {
		r.AddPermission(p.Name, p.Description)
	}
	for _, rd := range other.Roles() {
		r.Role(rd.Name(), rd.Description()).Grants(rd.GetGrants()...)
	}
	other.mu.RLock()
	errs := append([]error(nil), other.errs...)
	other.mu.RUnlock()

	r.mu.Lock()
	r.errs = append(r.errs, errs...)
	r.mu.Unlock()
	return r
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
