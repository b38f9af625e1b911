package repl

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"nimsh/internal/version"
)

var (
	headerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	headerInfoStyle  = lipgloss.NewStyle().Faint(true)
)

// printHeader writes the welcome banner: the shell version plus the first
// line of the compiler's own version output, when the probe succeeded.
func printHeader(w io.Writer, nimVersion string, colorEnabled bool) {
	title := "nimsh v" + version.Plain
	if colorEnabled {
		title = headerTitleStyle.Render(title)
		if nimVersion != "" {
			nimVersion = headerInfoStyle.Render(nimVersion)
		}
	}
	fmt.Fprintln(w, title)
	if nimVersion != "" {
		fmt.Fprintln(w, nimVersion)
	}
}
