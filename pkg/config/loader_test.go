package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "forge.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipeline.ExecuteConcurrency)
	assert.Equal(t, 3, cfg.Pipeline.RepairConcurrency)
	assert.Equal(t, 6, cfg.Pipeline.MaxRepairRetries)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.ExecutorTimeout)
}

func TestLoad_UserOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
pipeline:
  max_repair_retries: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Pipeline.MaxRepairRetries)
	// Untouched fields keep defaults.
	assert.Equal(t, 5, cfg.Pipeline.ExecuteConcurrency)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.LLM.APIKeyEnv)
}

func TestLoad_InvalidPortRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FORGE_TEST_ROOT", "/data/ws")

	out := ExpandEnv([]byte("workspace:\n  root: {{.FORGE_TEST_ROOT}}\n"))
	assert.Contains(t, string(out), "/data/ws")
}

func TestExpandEnv_PreservesDollarSigns(t *testing.T) {
	in := []byte(`pattern: "^secret.*$"`)
	assert.Equal(t, in, ExpandEnv(in))
}

func TestExpandEnv_MissingVarIsEmpty(t *testing.T) {
	out := ExpandEnv([]byte("key: {{.DEFINITELY_NOT_SET_VAR_42}}\n"))
	assert.Equal(t, "key: \n", string(out))
}
