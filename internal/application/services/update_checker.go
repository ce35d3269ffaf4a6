// Package services wires the core normalization, setup scheduling, and
// reconciliation logic to the installer, git, selection, and notification
// boundaries.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
	"github.com/plugvine/plugvine/internal/core/ports"
)

// DefaultParallel is the default bound on simultaneous remote fetches.
const DefaultParallel = 4

// defaultBranchFallbacks are tried, in order, when a repository exposes
// neither an upstream tracking ref nor a discoverable default branch.
var defaultBranchFallbacks = []string{"main", "master", "trunk"}

// ProgressFunc receives one call after each per-package fetch settles and
// one after each comparison settles.
type ProgressFunc func(completed, total int, identity string)

// UpdateChecker reconciles installed packages against their remote origin.
// Reconciliation is read-only: it fetches remote-tracking state and compares
// revisions, but never moves a checkout.
type UpdateChecker struct {
	revisions ports.RevisionSource
	notifier  ports.Notifier
	parallel  int
}

// NewUpdateChecker creates a checker with the given fetch parallelism.
// Non-positive parallelism falls back to DefaultParallel.
func NewUpdateChecker(revisions ports.RevisionSource, notifier ports.Notifier, parallel int) *UpdateChecker {
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	return &UpdateChecker{
		revisions: revisions,
		notifier:  notifier,
		parallel:  parallel,
	}
}

// Check fetches remote state for every package and returns the packages
// whose local and remote revisions diverge, in input order. At most the
// configured number of fetches are in flight at once; as one completes the
// next queued package starts. A per-package failure is reported as a
// warning and excludes only that package. Check returns exactly once, after
// every package has been accounted for.
func (c *UpdateChecker) Check(ctx context.Context, pkgs []plugin.InstalledPackage, progress ProgressFunc) []plugin.UpdateRecord {
	total := len(pkgs)
	fetched := make([]bool, total)

	var mu sync.Mutex
	completed := 0
	report := func(identity string) {
		if progress == nil {
			return
		}
		mu.Lock()
		completed++
		done := completed
		mu.Unlock()
		progress(done, total, identity)
	}

	// Fetch phase: sliding-window concurrency, failures isolated.
	var fetchGroup errgroup.Group
	fetchGroup.SetLimit(c.parallel)
	for i := range pkgs {
		fetchGroup.Go(func() error {
			pkg := pkgs[i]
			if err := c.revisions.Fetch(ctx, pkg.Path); err != nil {
				c.notifier.Warnf("fetch failed for %s: %v", pkg.Identity, err)
			} else {
				fetched[i] = true
			}
			report(pkg.Identity)
			return nil
		})
	}
	// The barrier: no comparison starts before every fetch has settled.
	_ = fetchGroup.Wait()

	mu.Lock()
	completed = 0
	mu.Unlock()

	// Compare phase. Packages whose fetch failed are still counted so the
	// phase's progress reaches the full total.
	results := make([]*plugin.UpdateRecord, total)
	var compareGroup errgroup.Group
	compareGroup.SetLimit(c.parallel)
	for i := range pkgs {
		if !fetched[i] {
			report(pkgs[i].Identity)
			continue
		}
		compareGroup.Go(func() error {
			pkg := pkgs[i]
			record, err := c.compare(ctx, pkg)
			if err != nil {
				c.notifier.Warnf("skipping %s: %v", pkg.Identity, err)
			} else if record != nil {
				results[i] = record
			}
			report(pkg.Identity)
			return nil
		})
	}
	_ = compareGroup.Wait()

	var records []plugin.UpdateRecord
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

// compare resolves both revisions for one package and returns a record when
// they diverge, nil when the package is current.
func (c *UpdateChecker) compare(ctx context.Context, pkg plugin.InstalledPackage) (*plugin.UpdateRecord, error) {
	local, err := c.revisions.LocalRevision(pkg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving local revision: %w", err)
	}
	remote, err := c.remoteRevision(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("resolving remote revision: %w", err)
	}
	if local == remote {
		return nil, nil
	}
	return &plugin.UpdateRecord{
		Identity:       pkg.Identity,
		Path:           pkg.Path,
		LocalRevision:  local,
		RemoteRevision: remote,
	}, nil
}

// remoteRevision resolves the revision the package should track. The first
// successful resolution wins: the configured override as a branch, then as
// a tag; the current branch's upstream; the remote default branch; finally
// the conventional default-branch names.
func (c *UpdateChecker) remoteRevision(ctx context.Context, pkg plugin.InstalledPackage) (string, error) {
	if pkg.Branch != "" {
		if rev, err := c.revisions.RemoteBranchRevision(pkg.Path, pkg.Branch); err == nil {
			return rev, nil
		}
		rev, err := c.revisions.RemoteTagRevision(pkg.Path, pkg.Branch)
		if err != nil {
			return "", fmt.Errorf("configured ref %q resolves as neither branch nor tag: %w", pkg.Branch, err)
		}
		return rev, nil
	}

	if rev, err := c.revisions.UpstreamRevision(pkg.Path); err == nil {
		return rev, nil
	}

	if name, err := c.revisions.DefaultBranch(ctx, pkg.Path); err == nil {
		if rev, err := c.revisions.RemoteBranchRevision(pkg.Path, name); err == nil {
			return rev, nil
		}
	}

	for _, name := range defaultBranchFallbacks {
		if rev, err := c.revisions.RemoteBranchRevision(pkg.Path, name); err == nil {
			return rev, nil
		}
	}
	return "", errors.New("no upstream, default branch, or conventional branch resolved")
}
