// Package manifest provisions a machine from a declarative TOML file listing
// packages per package manager.
package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Manifest mirrors the provisioning TOML:
//
//	[apt]
//	packages = ["curl", "jq"]
//	[flatpak]
//	packages = ["org.mozilla.firefox"]
//	[homebrew]
//	packages = ["ripgrep"]
//	[uv]
//	packages = ["ruff"]
type Manifest struct {
	Apt      Section `toml:"apt"`
	Flatpak  Section `toml:"flatpak"`
	Homebrew Section `toml:"homebrew"`
	UV       Section `toml:"uv"`
}

// Section lists the packages for one package manager.
type Section struct {
	Packages []string `toml:"packages"`
}

// Load reads and parses a provisioning manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// Empty reports whether the manifest lists no packages at all.
func (m *Manifest) Empty() bool {
	return len(m.Apt.Packages) == 0 &&
		len(m.Flatpak.Packages) == 0 &&
		len(m.Homebrew.Packages) == 0 &&
		len(m.UV.Packages) == 0
}
