package cli

import (
	"github.com/spf13/cobra"

	"github.com/plugvine/plugvine/internal/application/services"
	configinfra "github.com/plugvine/plugvine/internal/infrastructure/config"
)

// NewRootCommand builds the plugvine command tree.
func NewRootCommand(version string) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "plugvine",
		Short: "plugvine - git plugin registration and lifecycle engine",
		Long: `plugvine collects declarative plugin sources, installs them from their
git origins, runs post-install setup hooks in dependency order, and
reconciles installed checkouts against their remotes to find and apply
updates.`,
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.PluginDir, "dir", "~/.local/share/plugvine", "directory plugin checkouts live under")
	rootCmd.PersistentFlags().StringVar(&flags.Manifest, "manifest", configinfra.DefaultManifestName, "path to the plugin manifest")
	rootCmd.PersistentFlags().IntVar(&flags.Parallel, "parallel", services.DefaultParallel, "maximum simultaneous remote fetches")
	rootCmd.PersistentFlags().BoolVar(&flags.Quiet, "quiet", false, "suppress informational output")

	rootCmd.AddCommand(newInstallCommand(flags))
	rootCmd.AddCommand(newUpdateCommand(flags))
	rootCmd.AddCommand(newListCommand(flags))

	return rootCmd
}
