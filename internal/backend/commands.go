package backend

// List output formats. pipx emits JSON; the others print one package per line.
const (
	ListFormatLines    = "lines"
	ListFormatPipxJSON = "pipx-json"
)

// Commands holds the full argv for each adapter operation. Package names are
// appended to Install and Remove. Keeping the exact flags here (and
// overridable from settings) means command churn never reaches the
// reconciler or the update orchestrator.
type Commands struct {
	Tool       string
	List       []string
	ListFormat string
	Install    []string
	Remove     []string
	Upgrade    []string
}

func defaultCommands(kind Kind) Commands {
	switch kind {
	case Brew:
		return Commands{
			Tool:       "brew",
			List:       []string{"brew", "list", "--formula"},
			ListFormat: ListFormatLines,
			Install:    []string{"brew", "install"},
			Remove:     []string{"brew", "uninstall"},
			Upgrade:    []string{"brew", "upgrade"},
		}
	case Flatpak:
		return Commands{
			Tool:       "flatpak",
			List:       []string{"flatpak", "list", "--app", "--columns=application"},
			ListFormat: ListFormatLines,
			Install:    []string{"flatpak", "install", "-y"},
			Remove:     []string{"flatpak", "uninstall", "-y"},
			Upgrade:    []string{"flatpak", "update", "-y"},
		}
	case Pipx:
		return Commands{
			Tool:       "pipx",
			List:       []string{"pipx", "list", "--json"},
			ListFormat: ListFormatPipxJSON,
			Install:    []string{"pipx", "install"},
			Remove:     []string{"pipx", "uninstall"},
			Upgrade:    []string{"pipx", "upgrade-all"},
		}
	}
	return Commands{}
}

// merge overlays non-empty override fields onto the defaults.
func merge(base, override Commands) Commands {
	if override.Tool != "" {
		base.Tool = override.Tool
	}
	if len(override.List) > 0 {
		base.List = override.List
	}
	if override.ListFormat != "" {
		base.ListFormat = override.ListFormat
	}
	if len(override.Install) > 0 {
		base.Install = override.Install
	}
	if len(override.Remove) > 0 {
		base.Remove = override.Remove
	}
	if len(override.Upgrade) > 0 {
		base.Upgrade = override.Upgrade
	}
	return base
}
