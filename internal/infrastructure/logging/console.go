// Package logging provides the console notifier used by the CLI.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
)

// ConsoleNotifier writes styled diagnostics to a writer, usually stderr so
// messages never mix with command output.
type ConsoleNotifier struct {
	out   io.Writer
	quiet bool
}

// NewConsoleNotifier creates a notifier. With quiet set, Infof is dropped
// and only warnings and errors are written.
func NewConsoleNotifier(out io.Writer, quiet bool) *ConsoleNotifier {
	return &ConsoleNotifier{out: out, quiet: quiet}
}

func (n *ConsoleNotifier) Infof(format string, args ...any) {
	if n.quiet {
		return
	}
	fmt.Fprintln(n.out, infoStyle.Render(fmt.Sprintf(format, args...)))
}

func (n *ConsoleNotifier) Warnf(format string, args ...any) {
	fmt.Fprintln(n.out, warnStyle.Render("warning: "+fmt.Sprintf(format, args...)))
}

func (n *ConsoleNotifier) Errorf(format string, args ...any) {
	fmt.Fprintln(n.out, errorStyle.Render("error: "+fmt.Sprintf(format, args...)))
}
