package cli

import (
	"github.com/spf13/cobra"
)

func newInstallCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install every plugin declared in the manifest",
		Long: `Read the plugin manifest, resolve every declared source into the flat
installation set, clone anything missing, and run post-install setup hooks
in dependency order.

Examples:
  plugvine install
  plugvine install --manifest ./plugvine.yaml
  plugvine install --dir ~/.plugins`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newContainer(flags)

			sources, err := c.Loader.Load(flags.Manifest)
			if err != nil {
				if len(sources) == 0 {
					return err
				}
				// Partial load: report the bad entries, install the rest.
				c.Notifier.Warnf("%v", err)
			}

			c.Manager.RegisterAll(sources)
			return c.Manager.Install(cmd.Context())
		},
	}
}
