// Package config loads the loopctl configuration from
// ~/.loopctl/config.yaml. Every field has a working default so a fresh
// install needs no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the flat loopctl configuration.
type Config struct {
	// BaseDir is the root of the business-os document tree.
	BaseDir string `yaml:"base_dir"`
	// DefaultBusiness is used when no --business flag is given.
	DefaultBusiness string `yaml:"default_business,omitempty"`
	// PersistenceThreshold is the replan rolling-window size.
	PersistenceThreshold int `yaml:"persistence_threshold,omitempty"`
	// MinSeverity gates replan trigger creation.
	MinSeverity string `yaml:"min_severity,omitempty"`
	// AutoResolveAfterRuns resolves a trigger after this many
	// consecutive non-persistent runs.
	AutoResolveAfterRuns int `yaml:"auto_resolve_after_runs,omitempty"`
	// Debug enables debug logging.
	Debug bool `yaml:"debug,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{BaseDir: "."}
}

// Path returns the config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".loopctl", "config.yaml"), nil
}

// Load reads the config file, returning defaults when none exists.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path. A missing file
// yields the defaults, not an error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = "."
	}
	return cfg, nil
}

// Save writes the config file, creating its directory if needed.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes a config file to an explicit path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
