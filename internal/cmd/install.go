package cmd

import (
	"fmt"
	"io"

	"pkgsync/internal/manifest"
)

// Install provisions this machine from a TOML manifest. Individual package
// failures are logged and skipped; only an unreadable or unparseable
// manifest is a hard error.
func Install(path string, stdout io.Writer) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	if m.Empty() {
		fmt.Fprintf(stdout, "Manifest %s lists no packages, nothing to do.\n", path)
		return nil
	}

	failures := manifest.Install(m, stdout)
	if failures > 0 {
		fmt.Fprintf(stdout, "\nInstallation complete with %d failed packages (see log above).\n", failures)
	} else {
		fmt.Fprintln(stdout, "\nInstallation complete.")
	}
	return nil
}
