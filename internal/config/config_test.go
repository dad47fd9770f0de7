package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: https://api.example.com
session:
  poll_interval: 5s
  public_routes: ["/login"]
storage:
  driver: bolt
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, []string{"/login"}, cfg.Session.PublicRoutes)
	assert.Equal(t, "bolt", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(dir, "session", "session.db"), cfg.Storage.BoltPath)
	assert.Equal(t, "local", cfg.Notify.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestNewConfig_JSONFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api":{"base_url":"https://json.example.com"}}`), 0600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://json.example.com", cfg.API.BaseURL)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "file", cfg.Notify.Driver)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com\n"), 0600))

	t.Setenv("PORTALCTL_API_URL", "https://env.example.com")
	t.Setenv("PORTALCTL_STORAGE_DRIVER", "redis")
	t.Setenv("PORTALCTL_REDIS_DB", "3")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "redis", cfg.Notify.Driver)
	assert.Equal(t, 3, cfg.Storage.RedisDB)
}

func TestNewConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  pretty: true\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORTALCTL_S3_BUCKET=sf-forums\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("PORTALCTL_S3_BUCKET") })

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sf-forums", cfg.Proxy.Bucket)
	assert.True(t, cfg.Log.Pretty)
}

func TestNewConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0600))

	_, err := NewConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()

	_, err := FindConfigFile(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrNoConfigFile))

	_, err = FindConfigFile(dir)
	assert.True(t, errors.Is(err, ErrNoConfigFile))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("{}"), 0600))
	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), found)
}

func TestDurations(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, time.Hour, cfg.DefaultTTL())
	assert.Equal(t, time.Duration(0), cfg.ShortTTL())
	assert.Equal(t, 15*time.Minute, cfg.URLExpiry())

	cfg.Session.PollInterval = "garbage"
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Dir: dir}
	cfg.API.BaseURL = "https://saved.example.com"
	require.NoError(t, cfg.Save())

	loaded, err := NewConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com", loaded.API.BaseURL)
}
