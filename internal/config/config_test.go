package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "gmlvm.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 32000, cfg.Compat.MaxArrayIndex)
	assert.Equal(t, 100001, cfg.Compat.FirstInstanceID)
	assert.Equal(t, 4194304, cfg.Compat.MaxGridCells)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	path := filepath.Join(t.TempDir(), "gmlvm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
compat:
  max_call_depth: 32
  random_seed: 9
log:
  json: true
store:
  backend: sqlite
  dsn: file:ini.db
external:
  search_path: [plugins, /opt/gml]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Compat.MaxCallDepth)
	assert.Equal(t, int64(9), cfg.Compat.RandomSeed)
	assert.Equal(t, 4096, cfg.Compat.StackSize)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "file:ini.db", cfg.Store.DSN)
	assert.Equal(t, []string{"plugins", "/opt/gml"}, cfg.External.SearchPath)
}

func TestEnvOverridesLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "trace")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	tests := []struct {
		input    string
		contains string
	}{
		{"compat: {max_call_depth: 0}", "max_call_depth"},
		{"compat: {first_instance_id: 5}", "first_instance_id"},
		{"compat: {max_grid_cells: -1}", "max_grid_cells"},
		{"store: {backend: redis}", "unknown store backend"},
		{"compat: [1, 2]", "config"},
	}

	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "gmlvm.yaml")
		require.NoError(t, os.WriteFile(path, []byte(tt.input), 0o644))
		_, err := Load(path)
		require.Error(t, err, tt.input)
		assert.Contains(t, err.Error(), tt.contains, tt.input)
	}
}
