package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Profile is a named set of parameter overrides, used as a comparison
// scenario.
type Profile struct {
	Name   string
	Config model.RunConfig
}

type profileFile struct {
	Profiles []profileEntry `yaml:"profiles"`
}

type profileEntry struct {
	Name   string    `yaml:"name"`
	Config yaml.Node `yaml:"config"`
}

// DefaultProfilesPath returns the default file path for scenario profiles.
func DefaultProfilesPath() string {
	return filepath.Join(DefaultConfigDir(), "profiles.yaml")
}

// LoadProfiles reads profiles from a YAML file. Each profile's config is
// applied on top of base, so a profile only lists the keys it changes.
// Returns an empty slice if the file does not exist.
//
//	profiles:
//	  - name: Tight spacing
//	    config: {proximity_multiplier: 1.0}
func LoadProfiles(path string, base model.RunConfig) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Profile{}, nil
		}
		return nil, err
	}

	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	profiles := make([]Profile, 0, len(f.Profiles))
	seen := make(map[string]bool)
	for i, e := range f.Profiles {
		if e.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i+1)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate profile %q", e.Name)
		}
		seen[e.Name] = true

		cfg := base
		if !e.Config.IsZero() {
			if err := e.Config.Decode(&cfg); err != nil {
				return nil, fmt.Errorf("profile %q: %w", e.Name, err)
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", e.Name, err)
		}
		profiles = append(profiles, Profile{Name: e.Name, Config: cfg})
	}
	return profiles, nil
}

// SaveProfiles writes profiles as full configurations.
func SaveProfiles(path string, profiles []Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var f profileFile
	for _, p := range profiles {
		if p.Name == "" {
			return errors.New("profile has no name")
		}
		var node yaml.Node
		if err := node.Encode(p.Config); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
		f.Profiles = append(f.Profiles, profileEntry{Name: p.Name, Config: node})
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
