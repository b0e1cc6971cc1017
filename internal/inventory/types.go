// Package inventory models the set of installed packages per backend and
// computes the actions needed to converge one machine toward another.
package inventory

import (
	"sort"

	"pkgsync/internal/backend"
)

// Set is an unordered collection of package identifiers. Identifiers are
// opaque and backend-specific; equality is exact string match.
type Set map[string]bool

// NewSet builds a Set from package identifiers.
func NewSet(pkgs ...string) Set {
	s := make(Set, len(pkgs))
	for _, p := range pkgs {
		if p != "" {
			s[p] = true
		}
	}
	return s
}

// Sorted returns the members in ascending lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Inventory maps each backend to its installed package set. It is rebuilt
// fresh on every invocation and never cached across runs.
type Inventory map[backend.Kind]Set

// Equal reports whether both inventories hold the same packages per backend.
// A missing backend and an empty set are equivalent.
func (inv Inventory) Equal(other Inventory) bool {
	for _, kind := range backend.Kinds() {
		a, b := inv[kind], other[kind]
		if len(a) != len(b) {
			return false
		}
		for p := range a {
			if !b[p] {
				return false
			}
		}
	}
	return true
}

// Lists converts to the sorted-slice form used by the persisted registry.
// Backends with no packages are omitted.
func (inv Inventory) Lists() map[string][]string {
	out := make(map[string][]string, len(inv))
	for kind, set := range inv {
		if len(set) > 0 {
			out[string(kind)] = set.Sorted()
		}
	}
	return out
}

// Restrict returns a copy holding only the given backends' entries. A primary
// record can mention backends this machine does not manage; restricting keeps
// them out of any plan computed against it.
func (inv Inventory) Restrict(kinds []backend.Kind) Inventory {
	keep := make(map[backend.Kind]bool, len(kinds))
	for _, kind := range kinds {
		keep[kind] = true
	}
	out := make(Inventory, len(kinds))
	for kind, set := range inv {
		if keep[kind] {
			out[kind] = set
		}
	}
	return out
}

// FromLists rebuilds an Inventory from persisted registry form. Entries for
// backend names that are no longer recognized are dropped.
func FromLists(m map[string][]string) Inventory {
	inv := make(Inventory, len(m))
	for name, pkgs := range m {
		kind, err := backend.ParseKind(name)
		if err != nil {
			continue
		}
		inv[kind] = NewSet(pkgs...)
	}
	return inv
}
