package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for k := range defaults {
		name := EnvPrefix + "_" + strings.ToUpper(k)
		// Registers a restore so variables exported from .env do not leak.
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "pantry", cfg.RedisPrefix)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
}

func TestLoadKeepsExistingConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := "backend: memory\ndata_dir: /srv/pantry\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendMemory, cfg.Backend)
	assert.Equal(t, "/srv/pantry", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, yaml, string(data))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: memory\n"), 0o644))
	t.Setenv("PANTRY_BACKEND", "redis")
	t.Setenv("PANTRY_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendRedis, cfg.Backend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestDotEnvFillsUnsetVariables(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "PANTRY_BACKEND=postgres\nPANTRY_POSTGRES_DSN=postgres://localhost/pantry\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://localhost/pantry", cfg.PostgresDSN)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: postgres\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPostgresDSNEmpty))
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
