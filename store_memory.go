package gatekit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Store held entirely in process memory. It follows the same
// rules as BunStore (unique names, idempotent associations, cascading deletes)
// and suits tests and single-process tools that need no durability.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	now    func() time.Time

	users       map[int64]*User // by external id
	roles       map[int64]*Role
	permissions map[int64]*Permission

	userRoles map[int64]map[int64]struct{} // external user id -> role ids
	userPerms map[int64]map[int64]struct{} // external user id -> permission ids
	rolePerms map[int64]map[int64]struct{} // role id -> permission ids
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		users:       make(map[int64]*User),
		roles:       make(map[int64]*Role),
		permissions: make(map[int64]*Permission),
		userRoles:   make(map[int64]map[int64]struct{}),
		userPerms:   make(map[int64]map[int64]struct{}),
		rolePerms:   make(map[int64]map[int64]struct{}),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// ============================================================================
// USERS
// ============================================================================

func (m *MemoryStore) FindUser(_ context.Context, userID int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, userNotFound(userID)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UpsertUser(_ context.Context, profile UserProfile) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	u, ok := m.users[profile.ExternalID]
	if !ok {
		u = &User{ID: m.id(), ExternalID: profile.ExternalID, IsActive: true, CreatedAt: now}
		m.users[profile.ExternalID] = u
	}
	u.Username = profile.Username
	u.FirstName = profile.FirstName
	u.LastName = profile.LastName
	u.LanguageCode = profile.LanguageCode
	u.LastActivity = now
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) TouchUser(_ context.Context, userID int64) error {
	return m.updateUser(userID, func(u *User) { u.LastActivity = m.now() })
}

func (m *MemoryStore) SetUserActive(_ context.Context, userID int64, active bool) error {
	return m.updateUser(userID, func(u *User) { u.IsActive = active })
}

func (m *MemoryStore) SetUserBlocked(_ context.Context, userID int64, blocked bool) error {
	return m.updateUser(userID, func(u *User) { u.IsBlocked = blocked })
}

func (m *MemoryStore) updateUser(userID int64, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return userNotFound(userID)
	}
	fn(u)
	u.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return false, nil
	}
	delete(m.users, userID)
	delete(m.userRoles, userID)
	delete(m.userPerms, userID)
	return true, nil
}

// ============================================================================
// CATALOG
// ============================================================================

func (m *MemoryStore) FindPermissionByName(_ context.Context, name string) (*Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := m.permissionByName(name); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, notFound("permission", name).WithPermission(name)
}

func (m *MemoryStore) FindRoleByName(_ context.Context, name string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r := m.roleByName(name); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, notFound("role", name).WithRole(name)
}

func (m *MemoryStore) permissionByName(name string) *Permission {
	for _, p := range m.permissions {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *MemoryStore) roleByName(name string) *Role {
	for _, r := range m.roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (m *MemoryStore) ListRoles(_ context.Context, filter ListFilter) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Role
	for _, r := range m.roles {
		if (ListFilter{Prefix: filter.Prefix}).matches(r.Name) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter), nil
}

func (m *MemoryStore) ListPermissions(_ context.Context, filter ListFilter) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Permission
	for _, p := range m.permissions {
		if filter.matches(p.Name) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter), nil
}

func paginate[T any](items []T, filter ListFilter) []T {
	if filter.Offset > 0 {
		if filter.Offset >= len(items) {
			return nil
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items
}

func (m *MemoryStore) CreateRole(ctx context.Context, name, description string) (int64, error) {
	r, created, err := m.EnsureRole(ctx, name, description)
	if err != nil {
		return 0, err
	}
	if !created {
		return 0, NewError(ErrAlreadyExists, "role "+name).WithRole(name)
	}
	return r.ID, nil
}

func (m *MemoryStore) CreatePermission(ctx context.Context, name, description string) (int64, error) {
	p, created, err := m.EnsurePermission(ctx, name, description)
	if err != nil {
		return 0, err
	}
	if !created {
		return 0, NewError(ErrAlreadyExists, "permission "+name).WithPermission(name)
	}
	return p.ID, nil
}

func (m *MemoryStore) EnsureRole(_ context.Context, name, description string) (*Role, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r := m.roleByName(name); r != nil {
		cp := *r
		return &cp, false, nil
	}
	now := m.now()
	r := &Role{ID: m.id(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	m.roles[r.ID] = r
	cp := *r
	return &cp, true, nil
}

func (m *MemoryStore) EnsurePermission(_ context.Context, name, description string) (*Permission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p := m.permissionByName(name); p != nil {
		cp := *p
		return &cp, false, nil
	}
	now := m.now()
	p := &Permission{ID: m.id(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	m.permissions[p.ID] = p
	cp := *p
	return &cp, true, nil
}

func (m *MemoryStore) DeleteRole(_ context.Context, roleID int64) (bool, []int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[roleID]; !ok {
		return false, nil, nil
	}
	holders := m.roleHolders(roleID)
	delete(m.roles, roleID)
	delete(m.rolePerms, roleID)
	for _, roles := range m.userRoles {
		delete(roles, roleID)
	}
	return true, holders, nil
}

func (m *MemoryStore) DeletePermission(_ context.Context, permissionID int64) (bool, []int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.permissions[permissionID]; !ok {
		return false, nil, nil
	}

	seen := map[int64]struct{}{}
	for userID, perms := range m.userPerms {
		if _, ok := perms[permissionID]; ok {
			seen[userID] = struct{}{}
		}
		delete(perms, permissionID)
	}
	for roleID, perms := range m.rolePerms {
		if _, ok := perms[permissionID]; ok {
			for _, userID := range m.roleHolders(roleID) {
				seen[userID] = struct{}{}
			}
		}
		delete(perms, permissionID)
	}
	delete(m.permissions, permissionID)

	return true, sortedIDs(seen), nil
}

// ============================================================================
// GRANTS
// ============================================================================

func (m *MemoryStore) DirectPermissionNames(_ context.Context, userID int64) (PermissionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for pid := range m.userPerms[userID] {
		names = append(names, m.permissions[pid].Name)
	}
	return NewPermissionSet(names...), nil
}

func (m *MemoryStore) RolePermissionNames(_ context.Context, userID int64) (PermissionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for rid := range m.userRoles[userID] {
		for pid := range m.rolePerms[rid] {
			names = append(names, m.permissions[pid].Name)
		}
	}
	return NewPermissionSet(names...), nil
}

func (m *MemoryStore) UserRoleNames(_ context.Context, userID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for rid := range m.userRoles[userID] {
		names = append(names, m.roles[rid].Name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) RolePermissionNamesOf(_ context.Context, roleID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for pid := range m.rolePerms[roleID] {
		names = append(names, m.permissions[pid].Name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) RoleHolders(_ context.Context, roleID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roleHolders(roleID), nil
}

func (m *MemoryStore) roleHolders(roleID int64) []int64 {
	seen := map[int64]struct{}{}
	for userID, roles := range m.userRoles {
		if _, ok := roles[roleID]; ok {
			seen[userID] = struct{}{}
		}
	}
	return sortedIDs(seen)
}

func (m *MemoryStore) AssignRole(_ context.Context, userID, roleID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return false, userNotFound(userID)
	}
	if _, ok := m.roles[roleID]; !ok {
		return false, NewError(ErrNotFound, "gatekit_roles row")
	}
	return addPair(m.userRoles, userID, roleID), nil
}

func (m *MemoryStore) RevokeRole(_ context.Context, userID, roleID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removePair(m.userRoles, userID, roleID), nil
}

func (m *MemoryStore) GrantPermission(_ context.Context, userID, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return false, userNotFound(userID)
	}
	if _, ok := m.permissions[permissionID]; !ok {
		return false, NewError(ErrNotFound, "gatekit_permissions row")
	}
	return addPair(m.userPerms, userID, permissionID), nil
}

func (m *MemoryStore) RevokePermission(_ context.Context, userID, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removePair(m.userPerms, userID, permissionID), nil
}

func (m *MemoryStore) AddRolePermission(_ context.Context, roleID, permissionID int64) (bool, []int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[roleID]; !ok {
		return false, nil, NewError(ErrNotFound, "gatekit_roles row")
	}
	if _, ok := m.permissions[permissionID]; !ok {
		return false, nil, NewError(ErrNotFound, "gatekit_permissions row")
	}
	changed := addPair(m.rolePerms, roleID, permissionID)
	return changed, m.roleHolders(roleID), nil
}

func (m *MemoryStore) RemoveRolePermission(_ context.Context, roleID, permissionID int64) (bool, []int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := removePair(m.rolePerms, roleID, permissionID)
	return changed, m.roleHolders(roleID), nil
}

func addPair(index map[int64]map[int64]struct{}, a, b int64) bool {
	set, ok := index[a]
	if !ok {
		set = make(map[int64]struct{})
		index[a] = set
	}
	if _, ok := set[b]; ok {
		return false
	}
	set[b] = struct{}{}
	return true
}

func removePair(index map[int64]map[int64]struct{}, a, b int64) bool {
	set, ok := index[a]
	if !ok {
		return false
	}
	if _, ok := set[b]; !ok {
		return false
	}
	delete(set, b)
	return true
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
