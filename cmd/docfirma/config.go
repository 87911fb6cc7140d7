package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type cliConfig struct {
	DeviceToken string
	OutputDir   string
	StatePath   string
}

type fileConfig struct {
	DeviceToken string `toml:"device_token"`
	OutputDir   string `toml:"output_dir"`
	StatePath   string `toml:"state_path"`
}

// loadConfig reads an optional TOML config. An empty path means
// defaults only; a named file that is missing or malformed is an error.
func loadConfig(path string) (cliConfig, error) {
	cfg := cliConfig{OutputDir: "."}
	if defaultState, err := defaultStatePath(); err == nil {
		cfg.StatePath = defaultState
	}

	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("device_token") {
		cfg.DeviceToken = strings.TrimSpace(raw.DeviceToken)
	}
	if meta.IsDefined("output_dir") && strings.TrimSpace(raw.OutputDir) != "" {
		cfg.OutputDir = raw.OutputDir
	}
	if meta.IsDefined("state_path") && strings.TrimSpace(raw.StatePath) != "" {
		cfg.StatePath = raw.StatePath
	}
	return cfg, nil
}

func defaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("no user config dir: %w", err)
	}
	return filepath.Join(dir, "docfirma", "state.json"), nil
}
