package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  httpPort: 9000
  readTimeout: 2s
store:
  driver: mongo
  url: mongodb://localhost:27017
  transactions: true
lock:
  wait: 500ms
patch:
  inspectAllOperations: false
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.HTTPPort)
	assert.Equal(t, 9093, cfg.API.GRPCPort, "keys absent from the file keep their defaults")
	assert.Equal(t, 2*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.True(t, cfg.Store.Transactions)
	assert.Equal(t, 500*time.Millisecond, cfg.Lock.Wait)
	assert.False(t, cfg.Patch.InspectAllOperations)
	assert.True(t, cfg.Reviews.UnlinkOnDelete)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvStoreDriver, DriverPostgres)
	t.Setenv(EnvDatabaseURL, "postgres://catalog@localhost/catalog?sslmode=disable")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvHTTPPort, "8181")
	t.Setenv(EnvGRPCPort, "9191")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://catalog@localhost/catalog?sslmode=disable", cfg.Store.URL)
	assert.Equal(t, DriverRedis, cfg.Lock.Driver)
	assert.Equal(t, "redis:6379", cfg.Lock.Addr)
	assert.Equal(t, 8181, cfg.API.HTTPPort)
	assert.Equal(t, 9191, cfg.API.GRPCPort)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown store driver": "store:\n  driver: cassandra\n",
		"mongo without url":    "store:\n  driver: mongo\n",
		"unknown lock driver":  "lock:\n  driver: etcd\n",
		"malformed yaml":       "api: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	t.Run("non numeric port", func(t *testing.T) {
		t.Setenv(EnvHTTPPort, "http")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	} {
		assert.Equal(t, want, Config{Log: LogConfig{Level: level}}.SlogLevel(), level)
	}
}
