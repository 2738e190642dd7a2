// Package config implements the simulator's TOML-backed configuration,
// adapted from the teacher's config/config.go: a nested, toml-tagged
// Config struct with a DefaultConfig constructor and a platform-specific
// config path, re-scoped from ARM2 emulator settings to the LEGv8
// micro-step simulator's execution, history, and TUI display concerns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the simulator configuration.
type Config struct {
	// Execution settings.
	Execution struct {
		MaxInstructions uint64 `toml:"max_instructions"` // safety cap for `run` (0 = unbounded)
		EnableTrace     bool   `toml:"enable_trace"`
	} `toml:"execution"`

	// History settings, governing internal/history's retained snapshot cap
	// (spec.md §4.12's "implementation choice, e.g. 100").
	History struct {
		Size int `toml:"size"`
	} `toml:"history"`

	// Display settings for the CLI/TUI front ends.
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec
		ShowWires    bool   `toml:"show_wires"`    // stored and round-tripped only; no front end reads it
	} `toml:"display"`

	// Debug is the config-file counterpart of LEGV8_SIM_DEBUG. It is stored
	// and round-tripped only: the engine's debug logger is gated by the
	// environment variable alone and does not read this setting.
	Debug struct {
		Enabled bool `toml:"enabled"`
	} `toml:"debug"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.MaxInstructions = 1_000_000
	cfg.Execution.EnableTrace = true

	cfg.History.Size = 100

	cfg.Display.ColorOutput = true
	cfg.Display.NumberFormat = "hex"
	cfg.Display.ShowWires = true

	cfg.Debug.Enabled = false

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "legv8-sim")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "legv8-sim")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file is
// not an error: DefaultConfig is returned unchanged.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("config: failed to create directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("config: failed to create file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}

	return nil
}
