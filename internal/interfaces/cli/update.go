package cli

import (
	"github.com/spf13/cobra"
)

// UpdateFlags holds command-line flags for the update command.
type UpdateFlags struct {
	All bool
}

func newUpdateCommand(flags *rootFlags) *cobra.Command {
	updateFlags := &UpdateFlags{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check installed plugins for updates and apply a selection",
		Long: `Fetch remote state for every installed plugin, compare local and remote
revisions, and present the diverged plugins in an interactive picker.
Selected plugins are updated to their latest remote state.

Examples:
  plugvine update            # pick interactively
  plugvine update --all      # update everything that diverged
  plugvine update --parallel 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newContainer(flags)
			c.Picker.AssumeAll = updateFlags.All

			// The manifest supplies branch pins for the remote comparison;
			// a missing manifest just means no pins.
			if sources, err := c.Loader.Load(flags.Manifest); err == nil {
				c.Manager.RegisterAll(sources)
			}

			return c.Manager.Update(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&updateFlags.All, "all", false, "update every diverged plugin without prompting")
	return cmd
}
