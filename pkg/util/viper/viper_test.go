package viper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  address: ":7000"
  max-clients: 8
  write-timeout: 3s
logging:
  chat:
    level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg := New()
	cfg.SetDefault("server.max-line-bytes", 2048)
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, ":7000", cfg.GetString("server.address"))
	assert.Equal(t, 8, cfg.GetInt("server.max-clients"))
	assert.Equal(t, 3*time.Second, cfg.GetDuration("server.write-timeout"))
	assert.Equal(t, 2048, cfg.GetInt("server.max-line-bytes"))

	raw := map[string]map[string]any{}
	require.NoError(t, cfg.UnmarshalKey("logging", &raw))
	assert.Equal(t, "debug", raw["chat"]["level"])
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("ROOMCHAT_SERVER_MAX_CLIENTS", "3")
	t.Setenv("ROOMCHAT_ADMIN_ENABLE", "true")

	cfg := New()
	cfg.BindEnv("ROOMCHAT")
	cfg.SetDefault("server.max-clients", 50)
	cfg.SetDefault("admin.enable", false)

	assert.Equal(t, 3, cfg.GetInt("server.max-clients"))
	assert.True(t, cfg.GetBool("admin.enable"))
}

func TestConfigLoadMissingFile(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestConfigZeroValue(t *testing.T) {
	var cfg Config
	cfg.SetDefault("server.address", ":6667")
	assert.Equal(t, ":6667", cfg.GetString("server.address"))
	assert.NoError(t, cfg.Unmarshal(&struct{}{}))
}
