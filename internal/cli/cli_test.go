package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todosync/internal/hook"
	"github.com/mesh-intelligence/todosync/internal/mapping"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

type env struct {
	configDir string
	dataDir   string
}

// newEnv isolates a test from the user's configuration and selects the
// in-memory tracker.
func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Setenv("TODOSYNC_CONFIG_DIR", "")
	t.Setenv("TODOSYNC_DATA_DIR", "")
	t.Setenv("TODOSYNC_STORE_BACKEND", "")
	t.Setenv("TODOSYNC_TRACKER_BACKEND", types.TrackerMemory)
	return env{
		configDir: filepath.Join(root, ".todosync"),
		dataDir:   filepath.Join(root, ".beads"),
	}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (e env) mapping(t *testing.T) *types.Mapping {
	t.Helper()
	path := filepath.Join(e.dataDir, types.DefaultMappingFile)
	m, err := mapping.NewFileStore(path, nil).Load(t.Context())
	require.NoError(t, err)
	return m
}

const twoTodos = `[
  {"id": "1", "content": "Write docs", "status": "pending", "priority": "high"},
  {"id": "2", "content": "Ship it", "status": "in_progress", "priority": "medium"}
]`

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "todosync v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "todosync initialized")

	data, err := os.ReadFile(filepath.Join(e.configDir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: json")
	assert.Contains(t, string(data), "data_dir: "+e.dataDir)

	_, err = os.Stat(filepath.Join(e.dataDir, types.DefaultMappingFile))
	require.NoError(t, err)

	ignore, err := os.ReadFile(filepath.Join(e.dataDir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), types.DefaultMappingFile)

	t.Run("second init keeps existing files", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileName), []byte("log:\n  level: debug\n"), 0o644))
		_, _, err := e.run(t, "", "init")
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(e.configDir, configFileName))
		require.NoError(t, err)
		assert.Equal(t, "log:\n  level: debug\n", string(data))
	})
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run(t, "[]", "reconcile", "--session", "s1")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(e.configDir, configFileName))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))
}

func TestReconcileStdin(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run(t, twoTodos, "reconcile", "--session", "ses_cli", "--json")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "ses_cli", summary["sessionID"])
	assert.Equal(t, float64(2), summary["todos"])
	assert.NotEmpty(t, summary["epic"])

	m := e.mapping(t)
	epic, ok := m.Epic("ses_cli")
	require.True(t, ok)
	assert.Equal(t, summary["epic"], epic)
	assert.Len(t, m.Links("ses_cli"), 2)
}

func TestReconcileFile(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "todos.json")
	require.NoError(t, os.WriteFile(path, []byte(twoTodos), 0o644))

	out, _, err := e.run(t, "", "reconcile", "--session", "ses_file", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "reconciled 2 todos for session ses_file")
}

func TestReconcileUsageErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "missing session", stdin: twoTodos, args: []string{"reconcile"}},
		{name: "malformed todos", stdin: "{not a list", args: []string{"reconcile", "--session", "s1"}},
		{name: "todo without id", stdin: `[{"content":"x"}]`, args: []string{"reconcile", "--session", "s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, _, err := e.run(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}
}

func TestInvalidConfigIsUserError(t *testing.T) {
	e := newEnv(t)
	t.Setenv("TODOSYNC_STORE_BACKEND", "postgres")

	_, _, err := e.run(t, "[]", "reconcile", "--session", "s1")
	require.ErrorIs(t, err, types.ErrStoreBackendUnknown)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestRecoverWithoutSessionHistory(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run(t, "", "recover", "--session", "unknown", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, _, err = e.run(t, "", "recover", "--session", "unknown")
	require.NoError(t, err)
	assert.Contains(t, out, "no todos recorded")
}

func TestHook(t *testing.T) {
	e := newEnv(t)

	write := fmt.Sprintf(`{"event":"todo.write","sessionID":"ses_hook","todos":%s}`, twoTodos)
	out, _, err := e.run(t, write, "hook")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, out)
	assert.Len(t, e.mapping(t).Links("ses_hook"), 2)

	read := fmt.Sprintf(`{"event":"todo.read","sessionID":"ses_hook","todos":%s}`, twoTodos)
	out, _, err = e.run(t, read, "hook")
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"todos":%s}`, twoTodos), out)
}

func TestHookErrors(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run(t, `{"event":"todo.write","todos":[]}`, "hook")
	assert.ErrorIs(t, err, types.ErrSessionRequired)

	_, _, err = e.run(t, `{"event":"todo.delete","sessionID":"s"}`, "hook")
	assert.ErrorIs(t, err, types.ErrUnknownEvent)

	_, _, err = e.run(t, `garbage`, "hook")
	assert.ErrorIs(t, err, hook.ErrMalformedEvent)
	assert.Equal(t, exitUserError, exitCode(err))

	_, _, err = e.run(t, `{"event":"todo.write","todos":[]}`, "--session", "s-flag", "hook")
	assert.NoError(t, err)
}

func TestStatus(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run(t, twoTodos, "reconcile", "--session", "ses_a")
	require.NoError(t, err)
	_, _, err = e.run(t, "[]", "reconcile", "--session", "ses_b")
	require.NoError(t, err)

	out, _, err := e.run(t, "", "status", "--json")
	require.NoError(t, err)
	var report []sessionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report, 2)
	assert.Equal(t, "ses_a", report[0].SessionID)
	assert.Len(t, report[0].Todos, 2)
	// Each run starts a fresh in-memory tracker, so earlier issues are gone.
	assert.Equal(t, issueStatusMissing, report[0].Todos[0].Status)
	assert.Empty(t, report[1].Todos)

	out, _, err = e.run(t, "", "status", "--session", "ses_b")
	require.NoError(t, err)
	assert.Contains(t, out, "session ses_b")
	assert.Contains(t, out, "no linked todos")
	assert.NotContains(t, out, "ses_a")
}

func TestStatusEmpty(t *testing.T) {
	e := newEnv(t)
	out, _, err := e.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "no sessions recorded")
}

func TestConfigLayers(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on XDG_CONFIG_HOME")
	}
	e := newEnv(t)
	userDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "todosync")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, configFileName),
		[]byte("store:\n  backend: sqlite\ntracker:\n  timeout: 1.5\nlog:\n  level: debug\n"), 0o644))
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileName),
		[]byte("store:\n  backend: yaml\n"), 0o644))

	opts := &options{configDir: e.configDir, dataDir: e.dataDir}
	cfg, dir, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, e.configDir, dir)
	assert.Equal(t, types.StoreYAML, cfg.Store.Backend, "project file overrides user file")
	assert.Equal(t, "debug", cfg.Log.Level, "user file fills unset keys")
	assert.Equal(t, int64(1500), cfg.Tracker.Timeout.Milliseconds())
	assert.Equal(t, types.TrackerMemory, cfg.Tracker.Backend, "environment overrides files")
	assert.Equal(t, filepath.Join(e.dataDir, types.DefaultMappingFileYAML), cfg.MappingPath())

	_, isFile := newStore(cfg).(*mapping.FileStore)
	assert.True(t, isFile)
	cfg.Store.Backend = types.StoreSQLite
	_, isSQLite := newStore(cfg).(*mapping.SQLiteStore)
	assert.True(t, isSQLite)
}

func TestDataDirFromConfigFile(t *testing.T) {
	e := newEnv(t)
	fromFile := filepath.Join(t.TempDir(), "tracker-data")
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileName),
		[]byte("data_dir: "+fromFile+"\n"), 0o644))
	t.Setenv("TODOSYNC_DATA_DIR", "/ignored/by/config")

	opts := &options{configDir: e.configDir}
	cfg, _, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, fromFile, cfg.DataDir)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"usage", userErrorf("bad flag"), exitUserError},
		{"session", fmt.Errorf("wrapped: %w", types.ErrSessionRequired), exitUserError},
		{"tracker down", fmt.Errorf("reconcile: %w", types.ErrTrackerUnavailable), exitSysError},
		{"other", errors.New("disk full"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
