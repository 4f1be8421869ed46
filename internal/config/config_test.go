package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 37780 {
		t.Errorf("Port = %d, want 37780", cfg.Server.Port)
	}
	if cfg.Exercise.WeightLbs != 150 {
		t.Errorf("WeightLbs = %g, want 150", cfg.Exercise.WeightLbs)
	}
	if cfg.Units.BestEffort {
		t.Error("BestEffort should default to off")
	}
	if cfg.ListenAddr() != "127.0.0.1:37780" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 37780 {
		t.Errorf("missing file should yield defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
port = 9000

[units]
best_effort = true

[exercise]
weight_lbs = 180.5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	// Unset sections keep their defaults.
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want 127.0.0.1", cfg.Server.Bind)
	}
	if !cfg.Units.BestEffort {
		t.Error("BestEffort not applied")
	}
	if cfg.Exercise.WeightLbs != 180.5 {
		t.Errorf("WeightLbs = %g, want 180.5", cfg.Exercise.WeightLbs)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nport ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
