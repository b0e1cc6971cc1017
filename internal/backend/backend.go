package backend

import (
	"fmt"
)

// Kind identifies one supported package manager. The set is closed: anything
// else is rejected at parse time rather than silently ignored.
type Kind string

const (
	Brew    Kind = "brew"
	Flatpak Kind = "flatpak"
	Pipx    Kind = "pipx"
)

// Kinds returns all backends in their fixed processing order. Reconciliation
// and update passes iterate in this order so logs are reproducible.
func Kinds() []Kind {
	return []Kind{Brew, Flatpak, Pipx}
}

// ParseKind validates a backend name from configuration or user input.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case Brew, Flatpak, Pipx:
		return Kind(name), nil
	}
	return "", fmt.Errorf("unknown backend %q (supported: brew, flatpak, pipx)", name)
}

// Outcome classifies a bulk-upgrade attempt. Timeout is kept separate from
// Failure because only timed-out upgrades are eligible for a retry pass.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}
