// Package registry persists the machine inventory records that drive
// reconciliation. The file is human-diffable JSON with deterministic key
// order; it is the only durable state in the system.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvPath overrides the registry file location when set.
const EnvPath = "PKGSYNC_REGISTRY"

// Machine is one machine's recorded inventory. It is overwritten wholesale
// on every sync of that machine name.
type Machine struct {
	// Packages maps backend name to sorted package identifiers.
	Packages   map[string][]string `json:"packages"`
	LastUpdate time.Time           `json:"last_update"`
}

// Registry is the durable cross-machine state. PrimaryMachine is empty when
// no machine has been elected yet.
type Registry struct {
	PrimaryMachine string             `json:"primary_machine"`
	Machines       map[string]Machine `json:"machines"`
}

func empty() *Registry {
	return &Registry{Machines: map[string]Machine{}}
}

// Record stores a machine's inventory, stamping the update time. Patchable
// clock for tests.
var now = time.Now

func (r *Registry) Record(name string, packages map[string][]string) {
	if packages == nil {
		packages = map[string][]string{}
	}
	r.Machines[name] = Machine{Packages: packages, LastUpdate: now()}
}

// Store reads and writes a registry file at an explicit path, injected at
// construction so tests can point it at a temp dir.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is ~/.config/pkgsync/registry.json unless PKGSYNC_REGISTRY
// overrides it.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pkgsync", "registry.json"), nil
}

// Load reads the registry. A missing file yields an empty registry. A file
// that fails to parse is preserved as a sibling .bak before an empty
// registry is returned — corrupt data is never silently discarded, and
// corruption is never a hard failure.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		backup := s.path + ".bak"
		if werr := os.WriteFile(backup, data, 0644); werr != nil {
			return nil, fmt.Errorf("registry corrupt and backup failed: %w", werr)
		}
		log.Warn().Str("backup", backup).Err(err).Msg("registry corrupt, backed up and reinitialized")
		return empty(), nil
	}
	if reg.Machines == nil {
		reg.Machines = map[string]Machine{}
	}
	return &reg, nil
}

// Save writes the registry as indented JSON. Map keys marshal in sorted
// order, which keeps the file stable under version control.
func (s *Store) Save(reg *Registry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}
