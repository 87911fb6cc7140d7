package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputDir != "." {
		t.Fatalf("default output dir = %q", cfg.OutputDir)
	}
	if cfg.DeviceToken != "" {
		t.Fatalf("default device token should be empty, got %q", cfg.DeviceToken)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docfirma.toml")
	content := "device_token = \"dev-fixed\"\noutput_dir = \"/tmp/out\"\nstate_path = \"/tmp/state.json\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DeviceToken != "dev-fixed" || cfg.OutputDir != "/tmp/out" || cfg.StatePath != "/tmp/state.json" {
		t.Fatalf("config mismatch: %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("explicitly named missing config must be an error")
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docfirma.toml")
	if err := os.WriteFile(path, []byte("device_token = \"dev-a\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputDir != "." {
		t.Fatalf("unset keys must keep defaults, got %+v", cfg)
	}
}
