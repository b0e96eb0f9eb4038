package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	prev := slog.Default()
	t.Cleanup(func() {
		viper.Reset()
		slog.SetDefault(prev)
	})
}

func TestInit_DefaultsWithoutFiles(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	require.NoError(t, Init("", ""))

	assert.Equal(t, "8080", viper.GetString("server.http.port"))
	assert.Equal(t, "sqlite", viper.GetString("storage.driver"))
	assert.Equal(t, 3, viper.GetInt("orders.max_create_attempts"))
	assert.False(t, viper.GetBool("debug.fail_after_commit_enabled"))
	assert.Equal(t, 10*time.Second, viper.GetDuration("outbox.poll_interval"))
}

func TestInit_ReadsConfigAndEnvFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()

	configPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
storage:
  driver: postgres
orders:
  max_create_attempts: 5
debug:
  fail_after_commit_enabled: true
log:
  level: debug
`), 0o600))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("ORDER_PG_DB=orders_test\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ORDER_PG_DB") })

	require.NoError(t, Init(configPath, envPath))

	assert.Equal(t, "postgres", viper.GetString("storage.driver"))
	assert.Equal(t, 5, viper.GetInt("orders.max_create_attempts"))
	assert.True(t, viper.GetBool("debug.fail_after_commit_enabled"))
	assert.Equal(t, "orders_test", os.Getenv("ORDER_PG_DB"))
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_HTTP_PORT", "9090")

	require.NoError(t, Init("", ""))

	assert.Equal(t, "9090", viper.GetString("server.http.port"))
}

func TestInit_ExplicitConfigMustExist(t *testing.T) {
	resetViper(t)

	err := Init(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
