package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkgsync/internal/cmd"
	"pkgsync/internal/logging"
)

func main() {
	var debug bool

	root := &cobra.Command{
		Use:           "pkgsync",
		Short:         "Keep installed packages consistent across machines",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.Configure(debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	var (
		primary    bool
		withUpdate bool
	)
	syncCmd := &cobra.Command{
		Use:   "sync [machine]",
		Short: "Record this machine's packages and converge toward the primary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts := cmd.SyncOptions{Primary: primary, Update: withUpdate}
			if len(args) > 0 {
				opts.Machine = args[0]
			}
			return cmd.Sync(opts, os.Stdout)
		},
	}
	syncCmd.Flags().BoolVar(&primary, "primary", false, "Mark this machine as the primary inventory source")
	syncCmd.Flags().BoolVar(&withUpdate, "update", false, "Update all installed packages before syncing")
	root.AddCommand(syncCmd)

	root.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Bulk-upgrade installed packages across all backends",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Update(os.Stdout)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "install <manifest.toml>",
		Short: "Install packages listed in a provisioning manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.Install(args[0], os.Stdout)
		},
	})

	var reinit bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively set up this machine's settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Init(reinit)
		},
	}
	initCmd.Flags().BoolVar(&reinit, "reinit", false, "Overwrite existing settings")
	root.AddCommand(initCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
