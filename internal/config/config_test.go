package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Copy of Mouse_Data_Student_Copy.xlsx", cfg.Dataset.Name)
	assert.Equal(t, "data", cfg.Dataset.DataDir)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
dataset:
  name: Cohort B
  data_dir: /srv/exports
http:
  addr: 127.0.0.1:9000
fetch:
  retry_attempts: 7
cache:
  ttl: bogus
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv(configPathEnv, path)
	t.Setenv("ACTIVITY_DATASET", "Cohort C")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Cohort C", cfg.Dataset.Name)
	assert.Equal(t, "/srv/exports", cfg.Dataset.DataDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddress())
	assert.Equal(t, uint(7), cfg.Fetch.RetryAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "pipeline.db", cfg.Store.SQLitePath)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("ACTIVITY_CACHE_MAX_TABLES", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACTIVITY_CACHE_MAX_TABLES")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnvOverridesEveryKind(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("ACTIVITY_FETCH_RETRY_ATTEMPTS", "5")
	t.Setenv("ACTIVITY_CACHE_MAX_TABLES", "8")
	t.Setenv("ACTIVITY_HTTP_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint(5), cfg.Fetch.RetryAttempts)
	assert.Equal(t, 8, cfg.Cache.MaxTables)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadRejectsNegativeRetryAttempts(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("ACTIVITY_FETCH_RETRY_ATTEMPTS", "-1")

	_, err := Load()
	assert.ErrorContains(t, err, "ACTIVITY_FETCH_RETRY_ATTEMPTS")
}
