package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, filepath.Join(home, ".childhealth"), cfg.DataDir)
	assert.Equal(t, 15*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 30*time.Second, cfg.Sync.RequestTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.ItemDelay)
	assert.Equal(t, 5*time.Second, cfg.Sync.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Sync.MonitorInterval)

	assert.Equal(t, filepath.Join(home, ".childhealth", "master.key"), cfg.KeyPath())
	assert.Equal(t, filepath.Join(home, ".childhealth", "records.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(home, ".childhealth", "auth.json"), cfg.IdentityPath())
	assert.Equal(t, filepath.Join(home, ".childhealth", "client.log"), cfg.LogPath())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHILDHEALTH_SERVER_URL", "https://health.example.org")
	t.Setenv("CHILDHEALTH_ENV", EnvDev)
	t.Setenv("CHILDHEALTH_SYNC_ITEM_DELAY", "50ms")
	t.Setenv("CHILDHEALTH_LOG_FILE", "/tmp/ch.log")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://health.example.org", cfg.ServerURL)
	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, 50*time.Millisecond, cfg.Sync.ItemDelay)
	assert.Equal(t, "/tmp/ch.log", cfg.LogPath())
}

func TestLoad_ConfigFileInDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".childhealth")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	content := []byte("server_url: http://10.0.0.5:8080\nsync:\n  request_timeout: 5s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8080", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.Sync.RequestTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.ItemDelay)
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: local\ndata_dir: /var/lib/ch\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "/var/lib/ch", cfg.DataDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown env", env: map[string]string{"CHILDHEALTH_ENV": "staging"}},
		{name: "negative delay", env: map[string]string{"CHILDHEALTH_SYNC_ITEM_DELAY": "-1s"}},
		{name: "zero timeout", env: map[string]string{"CHILDHEALTH_SYNC_REQUEST_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
