package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"pkgsync/internal/config"
	"pkgsync/internal/inventory"
	"pkgsync/internal/registry"
	"pkgsync/internal/update"
)

// newOrchestrator builds the bulk-update runner. Patchable so tests can
// script its connectivity probe.
var newOrchestrator = func(backends []update.Upgrader, hosts []string) *update.Orchestrator {
	return update.New(backends, hosts)
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	// Machine is this machine's name; falls back to settings, then hostname.
	Machine string
	// Primary marks this machine as the primary inventory source.
	Primary bool
	// Update runs a bulk update pass before syncing.
	Update bool
}

// Sync records this machine's inventory and, for non-primary machines,
// converges the locally installed packages toward the primary's recorded
// inventory. Per-package failures are reported in the final inventory rather
// than aborting the run; only an update-pass failure or a registry write
// error produces a non-nil error.
func Sync(opts SyncOptions, stdout io.Writer) error {
	set, err := config.Load()
	if err != nil {
		return err
	}
	machine, err := resolveMachine(opts.Machine, set)
	if err != nil {
		return err
	}
	backends, err := loadBackends(set)
	if err != nil {
		return err
	}
	regPath, err := set.RegistryPath()
	if err != nil {
		return err
	}
	store := registry.NewStore(regPath)
	reg, err := store.Load()
	if err != nil {
		return err
	}

	var updateErr error
	if opts.Update {
		orch := newOrchestrator(asUpgraders(backends), set.ProbeHosts)
		if !orch.Run(context.Background(), stdout) {
			updateErr = errors.New("package update completed with failures")
		}
		fmt.Fprintln(stdout)
	}

	inv := inventory.Collect(asBackends(backends))
	fmt.Fprintln(stdout, "Current machine state:")
	inventory.Render(stdout, machine, inv)

	// Primary election: an explicit request always wins; otherwise the first
	// machine ever synced becomes primary. A primary whose record has gone
	// missing is tolerated by promoting the local machine.
	switch {
	case opts.Primary || reg.PrimaryMachine == "":
		reg.PrimaryMachine = machine
		fmt.Fprintf(stdout, "\nSetting %s as primary machine\n", machine)
	case reg.PrimaryMachine != machine:
		if _, ok := reg.Machines[reg.PrimaryMachine]; !ok {
			log.Warn().
				Str("primary", reg.PrimaryMachine).
				Msg("primary machine has no recorded inventory; promoting this machine")
			reg.PrimaryMachine = machine
		}
	}
	fmt.Fprintf(stdout, "\nPrimary machine is: %s\n", reg.PrimaryMachine)

	// A newly seen machine, or the primary itself, is simply recorded.
	_, known := reg.Machines[machine]
	if !known || machine == reg.PrimaryMachine {
		reg.Record(machine, inv.Lists())
		if err := store.Save(reg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nUpdated state for %s\n", machine)
		return updateErr
	}

	// Non-primary machine: converge toward the primary's inventory, ignoring
	// any backends this machine does not manage.
	primaryInv := inventory.FromLists(reg.Machines[reg.PrimaryMachine].Packages).Restrict(kindsOf(backends))
	fmt.Fprintln(stdout, "\nSyncing with primary machine...")
	actions := inventory.Plan(inv, primaryInv)
	if len(actions) == 0 {
		fmt.Fprintln(stdout, "Already in sync with primary.")
	} else if applied := inventory.Apply(actions, asBackends(backends), stdout); applied > 0 {
		// The snapshot must be rebuilt rather than assumed: a single
		// install/remove can have side effects beyond the named package.
		inv = inventory.Collect(asBackends(backends))
	}

	reg.Record(machine, inv.Lists())
	if err := store.Save(reg); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nFinal state:")
	inventory.Render(stdout, machine, inv)
	return updateErr
}

func resolveMachine(name string, set *config.Settings) (string, error) {
	if name != "" {
		return name, nil
	}
	if set.Machine != "" {
		return set.Machine, nil
	}
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("no machine name given and hostname lookup failed: %w", err)
	}
	return host, nil
}
