package inventory

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pkgsync/internal/backend"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	countStyle = lipgloss.NewStyle().Faint(true)
)

// Render writes a human-readable package report for one machine. Backends
// with nothing installed are omitted.
func Render(w io.Writer, machine string, inv Inventory) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Packages for %s:", machine)))
	for _, kind := range backend.Kinds() {
		set := inv[kind]
		if len(set) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			kindStyle.Render(fmt.Sprintf("%-8s", kind)),
			countStyle.Render(fmt.Sprintf("(%2d):", len(set))),
			strings.Join(set.Sorted(), ", "))
	}
}
