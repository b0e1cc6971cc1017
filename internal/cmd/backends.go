package cmd

import (
	"context"
	"time"

	"pkgsync/internal/backend"
	"pkgsync/internal/config"
	"pkgsync/internal/inventory"
	"pkgsync/internal/update"
)

// backendHandle is the full adapter surface the commands need. It exists so
// tests can substitute fakes for the real adapters.
type backendHandle interface {
	inventory.Backend
	Upgrade(ctx context.Context, timeout time.Duration) backend.Outcome
}

// loadBackends builds adapters for the managed backends, with any command
// overrides from settings applied. Patchable for tests.
var loadBackends = func(set *config.Settings) ([]backendHandle, error) {
	overrides, err := set.Overrides()
	if err != nil {
		return nil, err
	}
	kinds, err := set.ManagedKinds()
	if err != nil {
		return nil, err
	}
	handles := make([]backendHandle, 0, len(kinds))
	for _, kind := range kinds {
		handles = append(handles, backend.New(kind, overrides[kind]))
	}
	return handles, nil
}

func kindsOf(handles []backendHandle) []backend.Kind {
	kinds := make([]backend.Kind, len(handles))
	for i, h := range handles {
		kinds[i] = h.Kind()
	}
	return kinds
}

func asBackends(handles []backendHandle) []inventory.Backend {
	out := make([]inventory.Backend, len(handles))
	for i, h := range handles {
		out[i] = h
	}
	return out
}

func asUpgraders(handles []backendHandle) []update.Upgrader {
	out := make([]update.Upgrader, len(handles))
	for i, h := range handles {
		out[i] = h
	}
	return out
}
