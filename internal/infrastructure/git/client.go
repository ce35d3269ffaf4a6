// Package gitinfra adapts go-git to the engine's installer and revision
// query boundaries.
package gitinfra

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// shortHashLen matches the abbreviated hash length git porcelain prints.
const shortHashLen = 7

// Client implements ports.RevisionSource over local clones managed by
// go-git. All queries are read-only; Fetch only moves remote-tracking refs.
type Client struct{}

// NewClient creates a revision source.
func NewClient() *Client { return &Client{} }

// Fetch refreshes remote-tracking references and tags for the repository
// at path. An already-up-to-date repository is not an error.
func (c *Client) Fetch(ctx context.Context, path string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Tags:       git.AllTags,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// LocalRevision returns the short hash of the checked-out commit.
func (c *Client) LocalRevision(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return short(head.Hash()), nil
}

// RemoteBranchRevision returns the short hash the named remote-tracking
// branch points at, as of the last fetch.
func (c *Client) RemoteBranchRevision(path, branch string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, branch), true)
	if err != nil {
		return "", fmt.Errorf("resolving remote branch %q: %w", branch, err)
	}
	return short(ref.Hash()), nil
}

// RemoteTagRevision returns the short hash the named tag points at,
// peeling annotated tags down to their commit.
func (c *Client) RemoteTagRevision(path, tag string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(plumbing.NewTagReferenceName(tag)))
	if err != nil {
		return "", fmt.Errorf("resolving tag %q: %w", tag, err)
	}
	return short(*hash), nil
}

// UpstreamRevision returns the short hash of the current branch's upstream
// tracking reference.
func (c *Client) UpstreamRevision(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", short(head.Hash()))
	}
	branch, err := repo.Branch(head.Name().Short())
	if err != nil {
		return "", fmt.Errorf("no tracking configuration for %q: %w", head.Name().Short(), err)
	}
	if branch.Remote == "" || branch.Merge == "" {
		return "", fmt.Errorf("branch %q has no upstream", head.Name().Short())
	}
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(branch.Remote, branch.Merge.Short()), true)
	if err != nil {
		return "", fmt.Errorf("resolving upstream of %q: %w", head.Name().Short(), err)
	}
	return short(ref.Hash()), nil
}

// DefaultBranch asks the remote which branch its HEAD points at.
func (c *Client) DefaultBranch(ctx context.Context, path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("no %s remote: %w", git.DefaultRemoteName, err)
	}
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("listing remote refs: %w", err)
	}
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD && ref.Type() == plumbing.SymbolicReference {
			return ref.Target().Short(), nil
		}
	}
	return "", errors.New("remote does not advertise a default branch")
}

func short(h plumbing.Hash) string {
	return h.String()[:shortHashLen]
}
