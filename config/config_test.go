package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
model:
  name: physical
  inputs:
    cycle_type: WLTP
    vehicle_mass: 1500
  outputs:
    - co2_emission_value
    - distance
store:
  backend: file
  path: /tmp/runs
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "physical", cfg.Model.Name)
	assert.Equal(t, "WLTP", cfg.Model.Inputs["cycle_type"])
	assert.Equal(t, []string{"co2_emission_value", "distance"}, cfg.Model.Outputs)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "/tmp/runs", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json",
		`{"model": {"name": "cycle"}, "store": {"backend": "memory"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cycle", cfg.Model.Name)
	assert.Equal(t, "info", cfg.Logging.Level, "defaults fill the gaps")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("config.toml")
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
model:
  name: physical
`)
	t.Setenv("DISPATCHGO_MODEL__NAME", "cycle")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cycle", cfg.Model.Name)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Store.Backend = "cassandra"
	assert.ErrorContains(t, cfg.Validate(), "unknown store backend")

	cfg = Default()
	cfg.Store.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "requires a connection string")

	cfg = Default()
	cfg.Logging.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "unknown log level")
}
