package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/gatekit"
)

const notesManifest = `
modules:
  - name: notes
    permissions:
      - action: view
        description: Read notes
      - action: edit
roles:
  - name: editor
    description: Edits notes
    grants: [notes.view, notes.edit]
`

// harness runs gatectl commands against one in-memory service shared by
// every invocation.
type harness struct {
	t        *testing.T
	service  *gatekit.Service
	migrated []string
	opened   int
	closed   int
	lastCfg  gatekit.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("GATEKIT_DATABASE_URL", "postgres://unused")
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return &harness{
		t:       t,
		service: gatekit.NewService(gatekit.NewMemoryStore(), gatekit.WithLogger(logger)),
	}
}

func (h *harness) open(_ context.Context, cfg gatekit.Config, _ *logrus.Logger) (*Env, error) {
	h.opened++
	h.lastCfg = cfg
	return &Env{
		Service: h.service,
		Migrate: func(context.Context) ([]string, error) {
			applied := h.migrated
			h.migrated = nil
			return applied, nil
		},
		Close: func() error {
			h.closed++
			return nil
		},
	}, nil
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := NewRootCommand(h.open)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "gatectl %v", args)
	return out
}

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rbac.yaml")
	require.NoError(t, os.WriteFile(path, []byte(notesManifest), 0o600))
	return path
}

func TestMigrateCommand(t *testing.T) {
	h := newHarness(t)
	h.migrated = []string{"0001_gatekit_schema"}

	out := h.mustRun("migrate")
	assert.Equal(t, "applied 0001_gatekit_schema\n", out)

	out = h.mustRun("migrate")
	assert.Equal(t, "schema is up to date\n", out)
	assert.Equal(t, 2, h.opened)
	assert.Equal(t, 2, h.closed)
}

func TestSeedCommand(t *testing.T) {
	h := newHarness(t)
	path := writeManifest(t)

	out := h.mustRun("seed", "--manifest", path)
	assert.Contains(t, out, "permissions created: 2")
	assert.Contains(t, out, "roles created: 2")
	assert.Contains(t, out, "grants added: 4")

	out = h.mustRun("seed", "-m", path)
	assert.Contains(t, out, "permissions created: 0")
	assert.Contains(t, out, "grants added: 0")
}

func TestSeedCommandFromConfig(t *testing.T) {
	h := newHarness(t)
	t.Setenv("GATEKIT_MANIFEST_PATH", writeManifest(t))

	out := h.mustRun("seed")
	assert.Contains(t, out, "roles created: 2")
}

func TestSeedCommandNoManifest(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("seed")
	assert.ErrorContains(t, err, "no manifest")
	assert.Zero(t, h.opened)
}

func TestRoleAndPermCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("perm", "create", "notes.view", "-d", "Read notes")
	assert.Contains(t, out, "notes.view")
	h.mustRun("permission", "create", "billing.pay")
	out = h.mustRun("role", "create", "editor", "--description", "Edits notes")
	assert.Contains(t, out, "created role editor")

	out = h.mustRun("role", "grant", "editor", "notes.view")
	assert.Equal(t, "role editor grants notes.view\n", out)

	out = h.mustRun("perm", "list", "--module", "notes")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "notes.view")
	assert.NotContains(t, out, "billing.pay")

	out = h.mustRun("role", "list")
	assert.Contains(t, out, "editor")
	assert.Contains(t, out, "Edits notes")

	out = h.mustRun("role", "show", "editor")
	assert.Contains(t, out, "permissions: [notes.view]")

	_, err := h.run("role", "create", "editor")
	assert.True(t, gatekit.IsAlreadyExists(err))

	_, err = h.run("role", "grant", "editor", "notes.missing")
	assert.True(t, gatekit.IsNotFound(err))

	h.mustRun("role", "revoke", "editor", "notes.view")
	out = h.mustRun("role", "show", "editor")
	assert.Contains(t, out, "permissions: []")

	h.mustRun("role", "delete", "editor")
	out = h.mustRun("role", "list")
	assert.NotContains(t, out, "editor")

	h.mustRun("perm", "delete", "billing.pay")
	out = h.mustRun("perm", "list")
	assert.NotContains(t, out, "billing.pay")
}

func TestUserCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("seed", "-m", writeManifest(t))

	out := h.mustRun("user", "upsert", "42", "--username", "ann")
	assert.Equal(t, "user 42 saved\n", out)

	out = h.mustRun("check", "42", "notes.edit")
	assert.Equal(t, "denied (none)\n", out)

	out = h.mustRun("user", "assign", "42", "editor")
	assert.Equal(t, "assigned editor for user 42\n", out)

	out = h.mustRun("check", "42", "notes.edit")
	assert.Equal(t, "granted (role)\n", out)

	out = h.mustRun("user", "show", "42")
	assert.Contains(t, out, "user: 42 @ann")
	assert.Contains(t, out, "roles: editor")
	assert.Contains(t, out, "permissions: notes.edit, notes.view")

	h.mustRun("user", "revoke", "42", "editor")
	h.mustRun("user", "grant", "42", "notes.view")
	out = h.mustRun("check", "42", "notes.view")
	assert.Equal(t, "granted (direct)\n", out)
	h.mustRun("user", "deny", "42", "notes.view")
	out = h.mustRun("check", "42", "notes.view")
	assert.Equal(t, "denied (none)\n", out)

	out = h.mustRun("user", "block", "42")
	assert.Equal(t, "user 42 blocked\n", out)
	h.mustRun("user", "deactivate", "42")
	out = h.mustRun("user", "show", "42")
	assert.Contains(t, out, "active: false")
	assert.Contains(t, out, "blocked: true")

	h.mustRun("user", "activate", "42")
	h.mustRun("user", "unblock", "42")
	out = h.mustRun("user", "show", "42")
	assert.Contains(t, out, "active: true")
	assert.Contains(t, out, "blocked: false")

	_, err := h.run("user", "assign", "7", "editor")
	assert.True(t, gatekit.IsNotFound(err), "unknown user")
}

func TestInvalidUserID(t *testing.T) {
	h := newHarness(t)

	for _, arg := range []string{"abc", "0", "4.2"} {
		_, err := h.run("check", arg, "notes.view")
		assert.ErrorContains(t, err, "invalid user id")
	}
	assert.Zero(t, h.opened)
}

func TestParseUserID(t *testing.T) {
	id, err := parseUserID("-5")
	require.NoError(t, err)
	assert.Equal(t, int64(-5), id)

	_, err = parseUserID("0")
	assert.Error(t, err)
}

func TestConfigFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("GATEKIT_ACTOR_ID", "9")
	t.Setenv("GATEKIT_CACHE_BACKEND", "none")
	t.Setenv("GATEKIT_QUERY_TIMEOUT", "750ms")

	h.mustRun("role", "list")
	assert.Equal(t, "postgres://unused", h.lastCfg.DatabaseURL)
	assert.Equal(t, int64(9), h.lastCfg.ActorID)
	assert.Equal(t, "none", h.lastCfg.Cache.Backend)
	assert.Equal(t, "750ms", h.lastCfg.QueryTimeout.String())
	assert.Equal(t, gatekit.DefaultConfig().Cache.Size, h.lastCfg.Cache.Size)
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "gatekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  size: 25\nlog:\n  level: debug\n"), 0o600))

	h.mustRun("--config", path, "role", "list")
	assert.Equal(t, 25, h.lastCfg.Cache.Size)
	assert.Equal(t, "debug", h.lastCfg.Log.Level)

	_, err := h.run("-c", filepath.Join(t.TempDir(), "missing.yaml"), "role", "list")
	assert.ErrorContains(t, err, "error reading config")
}
