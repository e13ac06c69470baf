package mode

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a named hotkey bundle that can be applied to a mode in
// one step.
type Profile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Hotkeys     map[string]string `yaml:"hotkeys"`
}

// Validate checks that the profile is named and binds every supported
// operation.
func (p Profile) Validate() error {
	if p.Name == "" {
		return &ValidationError{
			Section: "profile",
			Field:   "name",
			Reason:  "missing profile name",
		}
	}
	return validateHotkeys("profile "+p.Name, p.Hotkeys)
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ParseProfiles decodes a profile bundle. Every profile must validate
// and names must be unique.
func ParseProfiles(data []byte) ([]Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	seen := make(map[string]bool, len(file.Profiles))
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, &ValidationError{
				Section: "profile " + p.Name,
				Field:   "name",
				Reason:  "duplicate profile name",
			}
		}
		seen[p.Name] = true
	}
	return file.Profiles, nil
}

// LoadProfiles reads a profile bundle from disk.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return ParseProfiles(data)
}

// SaveProfiles writes a profile bundle to disk.
func SaveProfiles(path string, profiles []Profile) error {
	data, err := yaml.Marshal(profileFile{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

// ApplyProfile replaces the active mode's hotkeys with the profile's
// bindings, all or nothing.
func (m *Manager) ApplyProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	cfg := m.configFor(m.current)
	for operation, hotkey := range p.Hotkeys {
		cfg.SetHotkey(operation, hotkey)
	}
	mode := m.current
	m.mu.Unlock()

	m.log.Info("applied hotkey profile %q to %s mode", p.Name, mode)
	m.bus.Publish(ChangeEvent{
		Kind:       ConfigUpdated,
		At:         m.now(),
		Mode:       mode,
		ConfigType: "profile:" + p.Name,
	})
	return nil
}
