package inventory

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"pkgsync/internal/backend"
)

// Op is a reconciliation operation.
type Op int

const (
	Install Op = iota
	Remove
)

func (op Op) String() string {
	if op == Install {
		return "install"
	}
	return "remove"
}

// Action is one install or remove of a single package on one backend.
type Action struct {
	Backend backend.Kind
	Op      Op
	Package string
}

// Plan computes the actions that converge local toward primary. Per backend
// independently: install what primary has and local lacks, remove what local
// has and primary lacks. The order is deterministic regardless of map
// iteration: backends in declared order, and within a backend all installs
// (ascending lexical) before all removes (ascending lexical).
func Plan(local, primary Inventory) []Action {
	var actions []Action
	for _, kind := range backend.Kinds() {
		for _, pkg := range subtract(primary[kind], local[kind]) {
			actions = append(actions, Action{Backend: kind, Op: Install, Package: pkg})
		}
		for _, pkg := range subtract(local[kind], primary[kind]) {
			actions = append(actions, Action{Backend: kind, Op: Remove, Package: pkg})
		}
	}
	return actions
}

// subtract returns a − b in ascending lexical order.
func subtract(a, b Set) []string {
	diff := Set{}
	for p := range a {
		if !b[p] {
			diff[p] = true
		}
	}
	return diff.Sorted()
}

// Apply attempts each action independently and returns how many succeeded.
// A failed action never aborts the rest: convergence is best-effort, not a
// transaction. Actions for backends whose tool is absent are skipped.
// After any success the caller must Collect a fresh snapshot before
// persisting, since a single install or remove is not guaranteed to affect
// exactly the named package.
func Apply(actions []Action, backends []Backend, stdout io.Writer) (applied int) {
	byKind := make(map[backend.Kind]Backend, len(backends))
	for _, b := range backends {
		byKind[b.Kind()] = b
	}

	for _, act := range actions {
		b := byKind[act.Backend]
		if b == nil || !b.Available() {
			log.Debug().
				Str("backend", string(act.Backend)).
				Str("package", act.Package).
				Msg("tool absent, skipping action")
			continue
		}

		switch act.Op {
		case Install:
			fmt.Fprintf(stdout, "Installing %s package: %s\n", act.Backend, act.Package)
			if b.Install(act.Package) {
				applied++
			} else {
				fmt.Fprintf(stdout, "  failed to install %s, skipping\n", act.Package)
			}
		case Remove:
			fmt.Fprintf(stdout, "Removing %s package: %s\n", act.Backend, act.Package)
			if b.Remove(act.Package) {
				applied++
			} else {
				fmt.Fprintf(stdout, "  failed to remove %s, skipping\n", act.Package)
			}
		}
	}
	return applied
}
