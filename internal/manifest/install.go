package manifest

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/rs/zerolog/log"
)

const flathubRepo = "https://flathub.org/repo/flathub.flatpakrepo"

// installer describes how one package manager installs manifest packages.
// prepare runs once before the first install (index refresh, remote setup).
type installer struct {
	name    string
	tool    string
	prepare [][]string
	install []string // package name appended
}

func installers() []installer {
	return []installer{
		{
			name:    "apt",
			tool:    "apt",
			prepare: [][]string{{"sudo", "apt", "update"}},
			install: []string{"sudo", "apt", "install", "-y"},
		},
		{
			name: "flatpak",
			tool: "flatpak",
			prepare: [][]string{
				{"flatpak", "remote-add", "--if-not-exists", "flathub-verified", flathubRepo},
			},
			install: []string{"flatpak", "install", "-y", "flathub-verified"},
		},
		{
			name:    "homebrew",
			tool:    "brew",
			prepare: [][]string{{"brew", "update"}},
			install: []string{"brew", "install"},
		},
		{
			name:    "uv",
			tool:    "uv",
			install: []string{"uv", "tool", "install"},
		},
	}
}

// Patchable for tests.
var (
	runCmd = func(out io.Writer, argv []string) error {
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdout = out
		cmd.Stderr = out
		return cmd.Run()
	}
	lookPath = exec.LookPath
)

// Install walks the manifest and installs each listed package, streaming
// command output to out. Managers whose tool is absent are skipped with a
// warning; a failing install is logged and does not stop the rest. Returns
// the number of packages that failed.
func Install(m *Manifest, out io.Writer) (failures int) {
	sections := map[string][]string{
		"apt":      m.Apt.Packages,
		"flatpak":  m.Flatpak.Packages,
		"homebrew": m.Homebrew.Packages,
		"uv":       m.UV.Packages,
	}

	for _, ins := range installers() {
		pkgs := sections[ins.name]
		if len(pkgs) == 0 {
			continue
		}
		if _, err := lookPath(ins.tool); err != nil {
			log.Warn().Str("manager", ins.name).Msgf("%s not found, skipping %d packages", ins.tool, len(pkgs))
			continue
		}

		for _, prep := range ins.prepare {
			if err := runCmd(out, prep); err != nil {
				log.Warn().Str("manager", ins.name).Strs("cmd", prep).Err(err).Msg("preparation step failed")
			}
		}

		for _, pkg := range pkgs {
			fmt.Fprintf(out, "Installing %s package: %s\n", ins.name, pkg)
			argv := append(append([]string{}, ins.install...), pkg)
			if err := runCmd(out, argv); err != nil {
				log.Warn().Str("manager", ins.name).Str("package", pkg).Err(err).Msg("install failed")
				failures++
			}
		}
	}
	return failures
}
