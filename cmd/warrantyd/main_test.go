package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goatkit/warrantyflow/internal/auth"
	"github.com/goatkit/warrantyflow/internal/config"
	"github.com/goatkit/warrantyflow/internal/transport"
)

func init() {
	logOutput = io.Discard
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigExampleCommand(t *testing.T) {
	out, err := runCmd(t, "config", "example")
	require.NoError(t, err)
	assert.Contains(t, out, "storage:")
	assert.Contains(t, out, "catalog_sync:")
	assert.Contains(t, out, "@hourly")
}

func TestTokenCommands(t *testing.T) {
	out, err := runCmd(t, "token", "hash-secret", "bridge-pass")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("bridge-pass")))

	t.Setenv("WARRANTY_AUTH_JWT_SECRET", "cmd-test-secret-012345")
	out, err = runCmd(t, "token", "issue", "--subject", "bridge", "--role", auth.RoleBridge)
	require.NoError(t, err)

	m, err := auth.NewJWTManager("cmd-test-secret-012345", "warrantyflow", 0)
	require.NoError(t, err)
	claims, err := m.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "bridge", claims.Subject)

	_, err = runCmd(t, "token", "issue", "--role", "root")
	assert.Error(t, err)
}

func TestMigrateRequiresSQLBackend(t *testing.T) {
	t.Setenv("WARRANTY_STORAGE_BACKEND", "memory")
	_, err := runCmd(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend=sql")
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warranty.db")
	t.Setenv("WARRANTY_STORAGE_BACKEND", "sql")
	t.Setenv("WARRANTY_STORAGE_SQL_DRIVER", "sqlite")
	t.Setenv("WARRANTY_STORAGE_SQL_DSN", "file:"+path)

	out, err := runCmd(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema ready on sqlite")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestBuildAppWithFileBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendFile
	cfg.Storage.Dir = t.TempDir()

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.messenger.(*transport.Memory)
	assert.True(t, ok, "empty bridge url selects the in-memory transport")
	assert.NoError(t, a.Ready(context.Background()))

	n, err := a.svc.AddStock(context.Background(), "Netflix Premium", []string{"a:1", "b:2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = os.Stat(filepath.Join(cfg.Storage.Dir, "stock-netflix-premium.json"))
	assert.NoError(t, err)
}

func TestBuildAppSelectsBridge(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	cfg.Bridge.BaseURL = "http://bridge.internal"

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	_, ok := a.messenger.(*transport.Bridge)
	assert.True(t, ok)
}

func TestNewScheduler(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	sched, err := newScheduler(cfg, a.svc, a.documents)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Len(t, sched.Jobs(), 2)

	cfg.Scheduler.Enabled = false
	sched, err = newScheduler(cfg, a.svc, a.documents)
	require.NoError(t, err)
	assert.Nil(t, sched)

	cfg.Scheduler.Enabled = true
	cfg.Scheduler.CatalogSync = "off"
	cfg.Scheduler.OrphanReconcile = "off"
	sched, err = newScheduler(cfg, a.svc, a.documents)
	require.NoError(t, err)
	assert.Nil(t, sched)
}
