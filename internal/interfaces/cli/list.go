package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	identityStyle = lipgloss.NewStyle().Bold(true)
	revisionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins and their checked-out revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newContainer(flags)

			pkgs, err := c.Installer.Installed(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing installed plugins: %w", err)
			}
			if len(pkgs) == 0 {
				c.Notifier.Infof("no plugins installed under %s", c.Installer.Root())
				return nil
			}

			out := cmd.OutOrStdout()
			for _, pkg := range pkgs {
				rev, err := c.Revisions.LocalRevision(pkg.Path)
				if err != nil {
					rev = "unknown"
				}
				fmt.Fprintf(out, "%s %s\n",
					identityStyle.Render(pkg.Identity),
					revisionStyle.Render(rev))
			}
			return nil
		},
	}
}
