package inventory

import "pkgsync/internal/backend"

// Backend is the adapter capability surface the inventory layer consumes.
type Backend interface {
	Kind() backend.Kind
	Available() bool
	ListInstalled() []string
	Install(pkg string) bool
	Remove(pkg string) bool
}

// Collect builds a fresh snapshot by listing every available backend.
// Backends whose tool is absent contribute nothing.
func Collect(backends []Backend) Inventory {
	inv := Inventory{}
	for _, b := range backends {
		if !b.Available() {
			continue
		}
		inv[b.Kind()] = NewSet(b.ListInstalled()...)
	}
	return inv
}
