// Package project persists run configuration and scenario profiles.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// DefaultConfigDir returns the default directory for configuration and the
// host model database: ~/.sleeveplan/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".sleeveplan")
}

// DefaultConfigPath returns the default path for the run configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDBPath returns the default path for the host model database.
func DefaultDBPath() string {
	return filepath.Join(DefaultConfigDir(), "model.db")
}

// SaveRunConfig persists a RunConfig to the given path as YAML.
// It creates any missing parent directories automatically.
func SaveRunConfig(path string, cfg model.RunConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadRunConfig reads a RunConfig from the given path. Keys missing from the
// file keep their default values. If the file does not exist, it returns
// DefaultRunConfig with no error.
func LoadRunConfig(path string) (model.RunConfig, error) {
	cfg := model.DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return model.RunConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.RunConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return model.RunConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
