// Package config loads the optional user settings file. Everything has a
// sensible default: a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"pkgsync/internal/backend"
	"pkgsync/internal/registry"
)

// Settings is stored at ~/.config/pkgsync/settings.yaml.
type Settings struct {
	// Machine is the default machine name for sync when no argument is given.
	Machine string `yaml:"machine"`
	// Registry overrides the registry file path.
	Registry string `yaml:"registry"`
	// ProbeHosts overrides the connectivity probe host set.
	ProbeHosts []string `yaml:"probe_hosts"`
	// Manage restricts which backends are synced/updated; empty means all.
	Manage []string `yaml:"manage"`
	// Backends overrides adapter commands per backend, keyed by backend name.
	Backends map[string]BackendOverride `yaml:"backends"`
}

// BackendOverride replaces parts of a backend's command table. Empty fields
// keep the built-in defaults. This is how the pipx backend can be pointed at
// uv, or extra flags pinned, without a code change.
type BackendOverride struct {
	Tool       string   `yaml:"tool"`
	List       []string `yaml:"list"`
	ListFormat string   `yaml:"list_format"`
	Install    []string `yaml:"install"`
	Remove     []string `yaml:"remove"`
	Upgrade    []string `yaml:"upgrade"`
}

// Dir is the per-user config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pkgsync"), nil
}

// Path is the settings file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// Load reads the settings file, returning defaults if it does not exist.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	var set Settings
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &set, nil
}

// Save writes the settings file, creating the config dir as needed.
func Save(set *Settings) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(set)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "settings.yaml"), data, 0644)
}

// RegistryPath resolves the registry file location: settings value first,
// then the PKGSYNC_REGISTRY env var / default.
func (s *Settings) RegistryPath() (string, error) {
	if s.Registry != "" {
		return s.Registry, nil
	}
	return registry.DefaultPath()
}

// Overrides converts the backend override map to adapter command tables,
// rejecting unknown backend names.
func (s *Settings) Overrides() (map[backend.Kind]backend.Commands, error) {
	out := make(map[backend.Kind]backend.Commands, len(s.Backends))
	for name, o := range s.Backends {
		kind, err := backend.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		out[kind] = backend.Commands{
			Tool:       o.Tool,
			List:       o.List,
			ListFormat: o.ListFormat,
			Install:    o.Install,
			Remove:     o.Remove,
			Upgrade:    o.Upgrade,
		}
	}
	return out, nil
}

// ManagedKinds resolves the Manage list to backend kinds. Empty means all.
// The result always follows the declared backend order, whatever order the
// settings file uses.
func (s *Settings) ManagedKinds() ([]backend.Kind, error) {
	if len(s.Manage) == 0 {
		return backend.Kinds(), nil
	}
	wanted := make(map[backend.Kind]bool, len(s.Manage))
	for _, name := range s.Manage {
		kind, err := backend.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		wanted[kind] = true
	}
	var kinds []backend.Kind
	for _, kind := range backend.Kinds() {
		if wanted[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}
