package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"pkgsync/internal/backend"
	"pkgsync/internal/config"
)

// runForm drives an interactive form. Patchable for tests.
var runForm = func(form *huh.Form) error { return form.Run() }

// Init runs the interactive setup wizard and writes settings.yaml.
func Init(reinit bool) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !reinit {
		fmt.Printf("%s already exists. Run with --reinit to overwrite.\n", path)
		return nil
	}

	fmt.Println("Welcome to pkgsync init. Let's set up this machine.")
	fmt.Println()

	machine, _ := os.Hostname()
	var isPrimary bool

	if err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Machine name").
			Description("Identifies this machine in the shared package registry.").
			Value(&machine).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("machine name cannot be empty")
				}
				return nil
			}),
		huh.NewConfirm().
			Title("Is this your primary machine?").
			Description("The primary machine's package list is the source of truth other machines sync toward.").
			Value(&isPrimary),
	))); err != nil {
		return err
	}

	var manage []string
	options := make([]huh.Option[string], 0, len(backend.Kinds()))
	for _, kind := range backend.Kinds() {
		options = append(options, huh.NewOption(string(kind), string(kind)).Selected(true))
	}
	if err := runForm(huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Backends to manage").
			Description("Absent tools are skipped automatically either way.").
			Options(options...).
			Value(&manage),
	))); err != nil {
		return err
	}

	set := &config.Settings{Machine: machine}
	// Only restrict backends when a strict subset was chosen.
	if len(manage) < len(backend.Kinds()) {
		set.Manage = manage
	}
	if err := config.Save(set); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)

	fmt.Println()
	fmt.Println("Done! Next steps:")
	if isPrimary {
		fmt.Println("  1. Run: pkgsync sync --primary")
		fmt.Println("  2. On each other machine: pkgsync init, then pkgsync sync")
	} else {
		fmt.Println("  1. Run: pkgsync sync")
	}
	return nil
}
