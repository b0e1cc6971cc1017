package cmd

import (
	"context"
	"errors"
	"io"

	"pkgsync/internal/config"
)

// Update runs one bulk-upgrade pass across all managed backends. The error
// reflects overall success so the exit code does too.
func Update(stdout io.Writer) error {
	set, err := config.Load()
	if err != nil {
		return err
	}
	backends, err := loadBackends(set)
	if err != nil {
		return err
	}

	orch := newOrchestrator(asUpgraders(backends), set.ProbeHosts)
	if !orch.Run(context.Background(), stdout) {
		return errors.New("some package updates failed")
	}
	return nil
}
