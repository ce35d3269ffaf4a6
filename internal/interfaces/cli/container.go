// Package cli wires the lifecycle engine to its cobra command surface.
package cli

import (
	"os"
	"strconv"

	"github.com/plugvine/plugvine/internal/application/services"
	"github.com/plugvine/plugvine/internal/core/ports"
	configinfra "github.com/plugvine/plugvine/internal/infrastructure/config"
	gitinfra "github.com/plugvine/plugvine/internal/infrastructure/git"
	"github.com/plugvine/plugvine/internal/infrastructure/logging"
)

// parallelEnv overrides the fetch parallelism without a flag.
const parallelEnv = "PLUGVINE_PARALLEL"

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	PluginDir string
	Manifest  string
	Parallel  int
	Quiet     bool
}

// Container holds the wired collaborators a command needs.
type Container struct {
	Notifier  ports.Notifier
	Loader    ports.SourceLoader
	Installer *gitinfra.Installer
	Revisions *gitinfra.Client
	Picker    *UpdatePicker
	Manager   *services.Manager
}

// newContainer builds the object graph from resolved flags.
func newContainer(flags *rootFlags) *Container {
	parallel := flags.Parallel
	if raw := os.Getenv(parallelEnv); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			parallel = n
		}
	}

	notifier := logging.NewConsoleNotifier(os.Stderr, flags.Quiet)
	installer := gitinfra.NewInstaller(flags.PluginDir, notifier)
	revisions := gitinfra.NewClient()
	picker := NewUpdatePicker()

	return &Container{
		Notifier:  notifier,
		Loader:    configinfra.NewManifestLoader(),
		Installer: installer,
		Revisions: revisions,
		Picker:    picker,
		Manager: services.NewManager(installer, revisions, picker, notifier,
			services.WithParallel(parallel)),
	}
}
