package gitinfra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
	"github.com/plugvine/plugvine/internal/core/ports"
	"github.com/plugvine/plugvine/internal/core/spec"
)

// Installer clones, lists, and updates plugin checkouts under a single
// root directory. Install is idempotent: packages already on disk are
// left untouched.
type Installer struct {
	root     string
	notifier ports.Notifier
}

// NewInstaller creates an installer rooted at dir. A leading ~ is expanded.
func NewInstaller(dir string, notifier ports.Notifier) *Installer {
	return &Installer{root: expandPath(dir), notifier: notifier}
}

// Root returns the directory checkouts live under.
func (i *Installer) Root() string { return i.root }

// EnsureInstalled clones every descriptor whose checkout is missing, in
// order, and returns the descriptors present on disk afterwards.
// Per-descriptor failures are collected so one broken source does not
// block the rest of the set.
func (i *Installer) EnsureInstalled(ctx context.Context, set []plugin.Descriptor) ([]plugin.Descriptor, error) {
	if err := os.MkdirAll(i.root, 0755); err != nil {
		return nil, fmt.Errorf("creating plugin directory: %w", err)
	}

	var (
		installed []plugin.Descriptor
		errs      []error
	)
	for _, d := range set {
		id, ok := spec.IdentityOfDescriptor(d)
		if !ok {
			errs = append(errs, fmt.Errorf("descriptor with unresolvable source %q", d.Source))
			continue
		}
		dir := i.checkoutDir(id)
		if _, err := os.Stat(dir); err == nil {
			installed = append(installed, d)
			continue
		}
		i.notifier.Infof("installing %s", id)
		if err := i.clone(ctx, dir, d); err != nil {
			errs = append(errs, fmt.Errorf("installing %s: %w", id, err))
			continue
		}
		installed = append(installed, d)
	}
	return installed, errors.Join(errs...)
}

func (i *Installer) clone(ctx context.Context, dir string, d plugin.Descriptor) error {
	opts := &git.CloneOptions{
		URL:        d.Source,
		RemoteName: git.DefaultRemoteName,
	}
	if d.BranchOverride != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(d.BranchOverride)
	}
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil && d.BranchOverride != "" {
		// The override may name a tag rather than a branch.
		os.RemoveAll(dir)
		opts.ReferenceName = plumbing.NewTagReferenceName(d.BranchOverride)
		_, err = git.PlainCloneContext(ctx, dir, false, opts)
	}
	if err != nil {
		os.RemoveAll(dir)
		return err
	}
	return nil
}

// Installed scans the root directory and reports every checkout whose
// origin URL yields a plugin identity. Directories that are not git
// repositories are skipped.
func (i *Installer) Installed(ctx context.Context) ([]plugin.InstalledPackage, error) {
	entries, err := os.ReadDir(i.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading plugin directory: %w", err)
	}

	var pkgs []plugin.InstalledPackage
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(i.root, entry.Name())
		repo, err := git.PlainOpen(dir)
		if err != nil {
			continue
		}
		remote, err := repo.Remote(git.DefaultRemoteName)
		if err != nil || len(remote.Config().URLs) == 0 {
			continue
		}
		id, ok := spec.Identity(remote.Config().URLs[0])
		if !ok {
			continue
		}
		pkgs = append(pkgs, plugin.InstalledPackage{Identity: id, Path: dir})
	}
	return pkgs, nil
}

// BatchUpdate pulls each named package to its latest remote state.
// Per-package failures are collected; the batch continues.
func (i *Installer) BatchUpdate(ctx context.Context, identities []string) error {
	pkgs, err := i.Installed(ctx)
	if err != nil {
		return err
	}
	byIdentity := make(map[string]plugin.InstalledPackage, len(pkgs))
	for _, pkg := range pkgs {
		byIdentity[pkg.Identity] = pkg
	}

	var errs []error
	for _, id := range identities {
		pkg, ok := byIdentity[id]
		if !ok {
			errs = append(errs, fmt.Errorf("package %q is not installed", id))
			continue
		}
		i.notifier.Infof("updating %s", id)
		if err := i.pull(ctx, pkg.Path); err != nil {
			errs = append(errs, fmt.Errorf("updating %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (i *Installer) pull(ctx context.Context, dir string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// checkoutDir maps an identity to its directory. The full identity is
// encoded so repositories with the same name under different owners get
// distinct checkouts. The origin URL, not the directory name, remains the
// source of truth for identity.
func (i *Installer) checkoutDir(identity string) string {
	return filepath.Join(i.root, strings.ReplaceAll(identity, "/", "--"))
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
