package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trbarbour/diskprep/pkg/env"
	"github.com/trbarbour/diskprep/pkg/planner"
)

// fileConfig is the YAML shape accepted from --config. Every recognized
// key is named here; the decoder rejects anything else (spec §9's
// closed, unknown-key-rejecting configuration surface).
type fileConfig struct {
	Mode     string `yaml:"mode"`
	ESPSizeGiB  uint64 `yaml:"esp_size_gib"`
	SwapSize    string `yaml:"swap_size"`
	SlashSizeGiB uint64 `yaml:"slash_size_gib"`
	HomeCapGiB   uint64 `yaml:"home_cap_gib"`
	DataSizeGiB  uint64 `yaml:"data_size_gib"`

	ForceWipeNonempty bool `yaml:"force_wipe_nonempty"`

	StateDir     string `yaml:"state_dir"`
	FormatterCmd string `yaml:"formatter_cmd"`
	PlanStoreDB  string `yaml:"plan_store_db"`
}

// loadConfig reads and strictly decodes a YAML config file.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// toPlannerConfig resolves the YAML config into planner.Config,
// auto-detecting swap_size=auto against the caller-supplied RAM probe
// (planner.Plan itself never probes RAM).
func (c fileConfig) toPlannerConfig(ramBytes uint64) planner.Config {
	cfg := planner.Config{
		Mode:                  planner.Mode(c.Mode),
		ForceIgnoreSignatures: c.ForceWipeNonempty,
		RAMBytes:              ramBytes,
	}
	if c.ESPSizeGiB > 0 {
		cfg.ESPSizeBytes = c.ESPSizeGiB << 30
	}
	if c.SwapSize != "" && c.SwapSize != "auto" {
		if gib, err := parseGiB(c.SwapSize); err == nil {
			cfg.SwapSizeBytes = gib << 30
		}
	}
	return cfg
}

func (c fileConfig) toEnvironment() env.Environment {
	e := env.Default()
	if c.StateDir != "" {
		e.StateDir = c.StateDir
	}
	if c.FormatterCmd != "" {
		e.FormatterCmd = c.FormatterCmd
	}
	if c.PlanStoreDB != "" {
		e.PlanStoreDB = c.PlanStoreDB
	}
	if c.Mode != "" {
		e.Mode = env.Mode(c.Mode)
	}
	return e
}

func parseGiB(s string) (uint64, error) {
	var n uint64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
