// Package ports declares the boundaries between the lifecycle engine and
// its external collaborators: the package installer, git revision queries,
// the update selection surface, user-facing notification, and declarative
// source loading.
package ports

import (
	"context"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
)

// SelectAll is the sentinel selection meaning "update every diverged
// package". It cannot collide with a real identity, which always contains
// a slash.
const SelectAll = "*"

// Installer is the external package installer. It owns cloning, checkout,
// and upgrading of repositories on disk; the engine only hands it work.
type Installer interface {
	// EnsureInstalled idempotently installs every descriptor not yet
	// present, in the given order. It returns the descriptors present on
	// disk after the call; per-descriptor failures are joined into the
	// returned error and never abort the rest of the set.
	EnsureInstalled(ctx context.Context, set []plugin.Descriptor) ([]plugin.Descriptor, error)

	// Installed returns the packages currently present on disk.
	Installed(ctx context.Context) ([]plugin.InstalledPackage, error)

	// BatchUpdate updates each named package to its latest remote state.
	BatchUpdate(ctx context.Context, identities []string) error
}

// RevisionSource exposes the read-only git queries reconciliation needs.
// Implementations must never mutate local or remote state beyond updating
// remote-tracking references during Fetch.
type RevisionSource interface {
	// Fetch refreshes the repository's remote-tracking state.
	Fetch(ctx context.Context, path string) error

	// LocalRevision returns the short hash of the checked-out commit.
	LocalRevision(path string) (string, error)

	// RemoteBranchRevision returns the short hash a remote branch points at.
	RemoteBranchRevision(path, branch string) (string, error)

	// RemoteTagRevision returns the short hash a tag points at.
	RemoteTagRevision(path, tag string) (string, error)

	// UpstreamRevision returns the short hash of the current branch's
	// upstream tracking reference.
	UpstreamRevision(path string) (string, error)

	// DefaultBranch returns the name of the remote's default branch.
	DefaultBranch(ctx context.Context, path string) (string, error)
}

// UpdateSelector turns a divergence list into the subset of identities to
// update. Returning an empty slice means "update nothing"; returning the
// single element SelectAll means "update everything".
type UpdateSelector interface {
	Select(ctx context.Context, records []plugin.UpdateRecord) ([]string, error)
}

// Notifier surfaces user-visible diagnostics. No failure in the engine is
// fatal; everything is reported here and processing continues.
type Notifier interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// SourceLoader loads declarative plugin sources for bulk registration.
// Unreadable or malformed entries are reported through the returned error
// while valid entries still load.
type SourceLoader interface {
	Load(path string) ([]plugin.Source, error)
}
