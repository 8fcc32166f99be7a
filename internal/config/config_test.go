package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Input.MouseSensitivity != 1.0 {
		t.Errorf("expected mouse sensitivity 1.0, got %v", cfg.Input.MouseSensitivity)
	}
	if cfg.Input.ScrollSpeed != 1.0 {
		t.Errorf("expected scroll speed 1.0, got %v", cfg.Input.ScrollSpeed)
	}
	if cfg.Input.EmergencyKey != "Escape" {
		t.Errorf("expected emergency key Escape, got %s", cfg.Input.EmergencyKey)
	}
	if cfg.Input.NoGrab {
		t.Error("expected no_grab false by default")
	}
	if cfg.Conditional.PollIntervalMs != 250 {
		t.Errorf("expected poll interval 250ms, got %d", cfg.Conditional.PollIntervalMs)
	}
	if len(cfg.Devices) != 0 {
		t.Errorf("expected empty device allow-list, got %v", cfg.Devices)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Input.EmergencyKey != "Escape" {
		t.Errorf("expected default emergency key, got %s", cfg.Input.EmergencyKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
script_path = "/home/user/scripts/main.hv"
devices = ["Logitech Keyboard", "/dev/input/event3"]

[input]
mouse_sensitivity = 2.5
scroll_speed = 0.5
emergency_key = "F12"
no_grab = true

[conditional]
poll_interval_ms = 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ScriptPath != "/home/user/scripts/main.hv" {
		t.Errorf("expected script path override, got %s", cfg.ScriptPath)
	}
	if len(cfg.Devices) != 2 || cfg.Devices[0] != "Logitech Keyboard" {
		t.Errorf("expected device allow-list override, got %v", cfg.Devices)
	}
	if cfg.Input.MouseSensitivity != 2.5 {
		t.Errorf("expected mouse sensitivity 2.5, got %v", cfg.Input.MouseSensitivity)
	}
	if cfg.Input.ScrollSpeed != 0.5 {
		t.Errorf("expected scroll speed 0.5, got %v", cfg.Input.ScrollSpeed)
	}
	if cfg.Input.EmergencyKey != "F12" {
		t.Errorf("expected emergency key F12, got %s", cfg.Input.EmergencyKey)
	}
	if !cfg.Input.NoGrab {
		t.Error("expected no_grab true")
	}
	if cfg.Conditional.PollIntervalMs != 100 {
		t.Errorf("expected poll interval 100, got %d", cfg.Conditional.PollIntervalMs)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.ScriptPath = "/etc/havel/main.hv"
	cfg.Input.MouseSensitivity = 3.0

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}

	if loaded.ScriptPath != "/etc/havel/main.hv" {
		t.Errorf("expected script path preserved, got %s", loaded.ScriptPath)
	}
	if loaded.Input.MouseSensitivity != 3.0 {
		t.Errorf("expected mouse sensitivity preserved, got %v", loaded.Input.MouseSensitivity)
	}
	if loaded.Input.EmergencyKey != "Escape" {
		t.Errorf("expected default emergency key preserved, got %s", loaded.Input.EmergencyKey)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "config.toml")

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed to create nested dirs: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist at %s: %v", path, err)
	}
}

func TestLoadPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[input]
scroll_speed = 4.0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Input.ScrollSpeed != 4.0 {
		t.Errorf("expected ScrollSpeed 4.0, got %v", cfg.Input.ScrollSpeed)
	}
	// Non-overridden values should remain defaults.
	if cfg.Input.EmergencyKey != "Escape" {
		t.Errorf("expected default emergency key, got %s", cfg.Input.EmergencyKey)
	}
	if cfg.Conditional.PollIntervalMs != 250 {
		t.Errorf("expected default poll interval, got %d", cfg.Conditional.PollIntervalMs)
	}
}
