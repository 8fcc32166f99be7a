// Package config loads and saves the Havel daemon's own settings —
// not to be confused with a script's `config {...}` block, which the
// language runtime evaluates separately (internal/lang/vm's
// $config function). This package covers the daemon-level defaults
// a script can be run without: which devices to grab, mouse/scroll
// tuning, the emergency shutdown key, plus a script path and a
// Conditional Layer poll interval. The run command reads the devices
// and input settings; script_path and poll_interval_ms are loaded and
// saved but not read by any command (the script path comes from the
// command line, and the Conditional Layer polls at its fixed
// conditional.PollInterval).
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// InputConfig holds Input Engine tuning knobs.
type InputConfig struct {
	MouseSensitivity float64 `toml:"mouse_sensitivity"`
	ScrollSpeed      float64 `toml:"scroll_speed"`
	EmergencyKey     string  `toml:"emergency_key"`
	NoGrab           bool    `toml:"no_grab"`
}

// ConditionalConfig holds Conditional Layer polling settings.
type ConditionalConfig struct {
	PollIntervalMs int `toml:"poll_interval_ms"`
}

// Config is the daemon's top-level configuration.
type Config struct {
	ScriptPath  string            `toml:"script_path"`
	Devices     []string          `toml:"devices"` // device node paths the engine opens; names are not resolved, and an empty list opens no device
	Input       InputConfig       `toml:"input"`
	Conditional ConditionalConfig `toml:"conditional"`
}

// Default returns a Config populated with all default values.
func Default() *Config {
	return &Config{
		ScriptPath: "",
		Devices:    nil,
		Input: InputConfig{
			MouseSensitivity: 1.0,
			ScrollSpeed:      1.0,
			EmergencyKey:     "Escape",
			NoGrab:           false,
		},
		Conditional: ConditionalConfig{
			PollIntervalMs: 250,
		},
	}
}

// DefaultPath returns the default config file path
// (~/.config/havel/config.toml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "havel", "config.toml")
}

// DefaultProfilesPath returns the default Map Manager profile store
// path (~/.local/share/havel/profiles.json).
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "havel", "profiles.json")
}

// Save writes the config as TOML to path, creating parent directories
// if needed. The write is atomic: data is written to a temporary file
// and renamed into place so a crash mid-write cannot corrupt the
// existing config.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".havel-config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads the TOML config from path. If the file does not exist, it
// returns the default config without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
