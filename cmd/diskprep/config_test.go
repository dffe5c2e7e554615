package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigParsesRecognizedKeys(t *testing.T) {
	path := writeTempConfig(t, `
mode: careful
esp_size_gib: 2
swap_size: auto
slash_size_gib: 60
home_cap_gib: 8
data_size_gib: 200
force_wipe_nonempty: true
state_dir: /var/lib/diskprep
formatter_cmd: disko
plan_store_db: /var/lib/diskprep/plans.db
`)

	fc, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "careful", fc.Mode)
	assert.Equal(t, uint64(2), fc.ESPSizeGiB)
	assert.Equal(t, "auto", fc.SwapSize)
	assert.True(t, fc.ForceWipeNonempty)
	assert.Equal(t, "disko", fc.FormatterCmd)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeTempConfig(t, "not_a_real_key: 1\n")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestToPlannerConfigResolvesAutoSwap(t *testing.T) {
	fc := fileConfig{Mode: "fast", SwapSize: "auto"}
	cfg := fc.toPlannerConfig(8 << 30)
	assert.Equal(t, uint64(0), cfg.SwapSizeBytes, "auto leaves SwapSizeBytes zero so Plan derives 2x RAM itself")
	assert.Equal(t, uint64(8<<30), cfg.RAMBytes)
}

func TestToPlannerConfigAbsoluteSwapOverride(t *testing.T) {
	fc := fileConfig{SwapSize: "32"}
	cfg := fc.toPlannerConfig(8 << 30)
	assert.Equal(t, uint64(32<<30), cfg.SwapSizeBytes)
}

func TestToEnvironmentAppliesOverrides(t *testing.T) {
	fc := fileConfig{StateDir: "/custom/state", FormatterCmd: "myformatter"}
	e := fc.toEnvironment()
	assert.Equal(t, "/custom/state", e.StateDir)
	assert.Equal(t, "myformatter", e.FormatterCmd)
}
