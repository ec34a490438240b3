package gatekit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// TestDataHelper bundles a Service over a MemoryStore with a captured logger.
type TestDataHelper struct {
	t       *testing.T
	ctx     context.Context
	store   *faultyStore
	mem     *MemoryStore
	service *Service
	logs    *test.Hook
}

// newTestHelper builds a Service with a fresh in-memory store. Options are
// applied after the test defaults.
func newTestHelper(t *testing.T, opts ...Option) *TestDataHelper {
	t.Helper()
	return newWrappedTestHelper(t, nil, opts...)
}

// newWrappedTestHelper is newTestHelper with wrap placed between the fault
// injector and the in-memory store.
func newWrappedTestHelper(t *testing.T, wrap func(Store) Store, opts ...Option) *TestDataHelper {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	mem := NewMemoryStore()
	var inner Store = mem
	if wrap != nil {
		inner = wrap(mem)
	}
	store := newFaultyStore(inner)

	base := []Option{
		WithLogger(logger),
		WithCache(NewMemoryCache(1000, time.Minute)),
		WithRetry(RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond}),
	}
	service := NewService(store, append(base, opts...)...)

	ctx := WithRequestID(WithActorID(context.Background(), 9999), "test-request")
	return &TestDataHelper{t: t, ctx: ctx, store: store, mem: mem, service: service, logs: hook}
}

// user creates a user row.
func (h *TestDataHelper) user(id int64) {
	h.t.Helper()
	_, err := h.service.UpsertUser(h.ctx, UserProfile{ExternalID: id, Username: "user"})
	require.NoError(h.t, err)
}

// permission creates a permission.
func (h *TestDataHelper) permission(name string) {
	h.t.Helper()
	_, err := h.service.EnsurePermission(h.ctx, name, "")
	require.NoError(h.t, err)
}

// role creates a role bundling the given permissions, creating them as needed.
func (h *TestDataHelper) role(name string, permissions ...string) {
	h.t.Helper()
	_, err := h.service.EnsureRole(h.ctx, name, "")
	require.NoError(h.t, err)
	for _, p := range permissions {
		h.permission(p)
		require.NoError(h.t, h.service.AddPermissionToRole(h.ctx, name, p))
	}
}

func (h *TestDataHelper) has(userID int64, permission string) bool {
	h.t.Helper()
	ok, err := h.service.UserHasPermission(h.ctx, userID, permission)
	require.NoError(h.t, err)
	return ok
}

// entries returns the captured log entries whose message is msg.
func (h *TestDataHelper) entries(msg string) []logrus.Entry {
	var out []logrus.Entry
	for _, e := range h.logs.AllEntries() {
		if e.Message == msg {
			out = append(out, *e)
		}
	}
	return out
}

// errConnRefused looks like a dropped database connection.
var errConnRefused = NewError(ErrStorageUnavailable, "dial tcp: connection refused")

// faultyStore wraps a Store and injects failures or latency per operation.
type faultyStore struct {
	Store

	mu        sync.Mutex
	errs      map[string]error
	remaining map[string]int
	delay     map[string]time.Duration
	calls     map[string]int
	gate      chan struct{}
}

func newFaultyStore(inner Store) *faultyStore {
	return &faultyStore{
		Store:     inner,
		errs:      map[string]error{},
		remaining: map[string]int{},
		delay:     map[string]time.Duration{},
		calls:     map[string]int{},
	}
}

// fail makes op return err. times limits how often; zero means always.
func (f *faultyStore) fail(op string, err error, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
	if times > 0 {
		f.remaining[op] = times
	} else {
		delete(f.remaining, op)
	}
}

func (f *faultyStore) slow(op string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[op] = d
}

// block makes DirectPermissionNames wait until the returned func is called.
func (f *faultyStore) block() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	gate := f.gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *faultyStore) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = map[string]error{}
	f.remaining = map[string]int{}
	f.delay = map[string]time.Duration{}
	f.gate = nil
}

func (f *faultyStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultyStore) hit(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.errs[op]
	if n, limited := f.remaining[op]; limited {
		if n <= 0 {
			err = nil
		} else {
			f.remaining[op] = n - 1
		}
	}
	delay := f.delay[op]
	var gate chan struct{}
	if op == "DirectPermissionNames" {
		gate = f.gate
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *faultyStore) FindPermissionByName(ctx context.Context, name string) (*Permission, error) {
	if err := f.hit(ctx, "FindPermissionByName"); err != nil {
		return nil, err
	}
	return f.Store.FindPermissionByName(ctx, name)
}

func (f *faultyStore) DirectPermissionNames(ctx context.Context, userID int64) (PermissionSet, error) {
	if err := f.hit(ctx, "DirectPermissionNames"); err != nil {
		return PermissionSet{}, err
	}
	return f.Store.DirectPermissionNames(ctx, userID)
}

func (f *faultyStore) RolePermissionNames(ctx context.Context, userID int64) (PermissionSet, error) {
	if err := f.hit(ctx, "RolePermissionNames"); err != nil {
		return PermissionSet{}, err
	}
	return f.Store.RolePermissionNames(ctx, userID)
}

func (f *faultyStore) AssignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	if err := f.hit(ctx, "AssignRole"); err != nil {
		return false, err
	}
	return f.Store.AssignRole(ctx, userID, roleID)
}

func (f *faultyStore) GrantPermission(ctx context.Context, userID, permissionID int64) (bool, error) {
	if err := f.hit(ctx, "GrantPermission"); err != nil {
		return false, err
	}
	return f.Store.GrantPermission(ctx, userID, permissionID)
}

func (f *faultyStore) ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error) {
	if err := f.hit(ctx, "ListPermissions"); err != nil {
		return nil, err
	}
	return f.Store.ListPermissions(ctx, filter)
}

// ackStore calls afterCommit once a wrapped mutation has committed. A non-nil
// error replaces the result, as when the commit acknowledgement never arrives.
type ackStore struct {
	Store

	mu          sync.Mutex
	afterCommit func(op string) error
}

func (s *ackStore) committed(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.afterCommit == nil {
		return nil
	}
	return s.afterCommit(op)
}

func (s *ackStore) RevokeRole(ctx context.Context, userID, roleID int64) (bool, error) {
	changed, err := s.Store.RevokeRole(ctx, userID, roleID)
	if err != nil {
		return changed, err
	}
	if herr := s.committed("RevokeRole"); herr != nil {
		return false, herr
	}
	return changed, nil
}

func (s *ackStore) DeleteRole(ctx context.Context, roleID int64) (bool, []int64, error) {
	deleted, holders, err := s.Store.DeleteRole(ctx, roleID)
	if err != nil {
		return deleted, holders, err
	}
	if herr := s.committed("DeleteRole"); herr != nil {
		return false, nil, herr
	}
	return deleted, holders, nil
}

func (s *ackStore) CreateRole(ctx context.Context, name, description string) (int64, error) {
	id, err := s.Store.CreateRole(ctx, name, description)
	if err != nil {
		return id, err
	}
	if herr := s.committed("CreateRole"); herr != nil {
		return 0, herr
	}
	return id, nil
}

// loseFirstAck returns an afterCommit hook that fails the first commit of op
// with a dropped connection.
func loseFirstAck(op string) func(string) error {
	lost := false
	return func(got string) error {
		if got != op || lost {
			return nil
		}
		lost = true
		return errConnRefused
	}
}

// failingCache is a DecisionCache whose backend is down.
type failingCache struct {
	NopCache
	purgeErr error
}

var errCacheDown = errors.New("cache backend down")

func (failingCache) Epoch(context.Context, int64) (uint64, error) { return 0, errCacheDown }
func (failingCache) Get(context.Context, int64, string) (bool, bool, error) {
	return false, false, errCacheDown
}
func (failingCache) InvalidateUsers(context.Context, []int64) error { return errCacheDown }
func (failingCache) InvalidateUser(context.Context, int64) error    { return errCacheDown }
func (c failingCache) Purge(context.Context) error                  { return c.purgeErr }
func (failingCache) Ping(context.Context) error                     { return errCacheDown }
