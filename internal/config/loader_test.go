package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealtier/mealtier/internal/config"
	"github.com/mealtier/mealtier/internal/remote"
	"github.com/mealtier/mealtier/internal/store"
)

const yamlConfig = `
remote:
  mode: redis
  timeout: 2s
  redis:
    addr: localhost:6379
    password: ${TEST_REDIS_PASSWORD}
    tls: true
store:
  mode: supabase
  url: https://example.supabase.co
  key: service-role-key
local:
  path: /tmp/mealtier-test.db
ratelimit:
  enabled: true
  limit: 60
  window_ms: 60000
policy:
  soft_cache_failures: true
  fail_open_rate_limit: true
logging:
  level: debug
  format: console
`

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "sekrit")

	cfg, err := config.LoadYAML(strings.NewReader(yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, remote.ModeRedis, cfg.Remote.Mode)
	assert.Equal(t, "localhost:6379", cfg.Remote.Redis.Addr)
	assert.Equal(t, "sekrit", cfg.Remote.Redis.Password, "env vars must expand")
	assert.True(t, cfg.Remote.Redis.TLS)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, store.ModeSupabase, cfg.Store.Mode)
	assert.Equal(t, "/tmp/mealtier-test.db", cfg.Local.Path)
	assert.Equal(t, 60, cfg.RateLimit.Limit)
	assert.Equal(t, config.LevelDebug, cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	tomlConfig := `
[remote]
mode = "memory"

[store]
mode = "memory"

[local]
path = "/tmp/mealtier-test.db"

[logging]
level = "warn"
`
	cfg, err := config.LoadTOML(strings.NewReader(tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, remote.ModeMemory, cfg.Remote.Mode)
	assert.Equal(t, store.ModeMemory, cfg.Store.Mode)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_PicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("logging:\n  level: error\n"), 0o600))
	cfg, err := config.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, config.LevelError, cfg.Logging.Level)

	tomlPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[logging]\nlevel = \"error\"\n"), 0o600))
	cfg, err = config.Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, config.LevelError, cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestLoadYAML_Malformed(t *testing.T) {
	_, err := config.LoadYAML(strings.NewReader("remote: [not a map"))
	require.Error(t, err)
}
