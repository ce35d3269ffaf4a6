package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
)

// fakeNotifier collects diagnostics for assertions.
type fakeNotifier struct {
	mu       sync.Mutex
	infos    []string
	warnings []string
	errors   []string
}

func (n *fakeNotifier) Infof(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, fmt.Sprintf(format, args...))
}

func (n *fakeNotifier) Warnf(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, fmt.Sprintf(format, args...))
}

func (n *fakeNotifier) Errorf(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, fmt.Sprintf(format, args...))
}

func (n *fakeNotifier) warningCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.warnings)
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

// fakeRevisions is an in-memory revision source keyed by checkout path.
type fakeRevisions struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int

	fetchDelay    time.Duration
	fetchErr      map[string]error
	local         map[string]string
	remoteBranch  map[string]map[string]string
	remoteTag     map[string]map[string]string
	upstream      map[string]string
	defaultBranch map[string]string
}

func newFakeRevisions() *fakeRevisions {
	return &fakeRevisions{
		fetchErr:      make(map[string]error),
		local:         make(map[string]string),
		remoteBranch:  make(map[string]map[string]string),
		remoteTag:     make(map[string]map[string]string),
		upstream:      make(map[string]string),
		defaultBranch: make(map[string]string),
	}
}

func (f *fakeRevisions) setBranch(path, branch, rev string) {
	if f.remoteBranch[path] == nil {
		f.remoteBranch[path] = make(map[string]string)
	}
	f.remoteBranch[path][branch] = rev
}

func (f *fakeRevisions) setTag(path, tag, rev string) {
	if f.remoteTag[path] == nil {
		f.remoteTag[path] = make(map[string]string)
	}
	f.remoteTag[path][tag] = rev
}

func (f *fakeRevisions) Fetch(ctx context.Context, path string) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.fetchDelay
	err := f.fetchErr[path]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return err
}

func (f *fakeRevisions) LocalRevision(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev, ok := f.local[path]; ok {
		return rev, nil
	}
	return "", fmt.Errorf("no local revision for %s", path)
}

func (f *fakeRevisions) RemoteBranchRevision(path, branch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev, ok := f.remoteBranch[path][branch]; ok {
		return rev, nil
	}
	return "", fmt.Errorf("no remote branch %q for %s", branch, path)
}

func (f *fakeRevisions) RemoteTagRevision(path, tag string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev, ok := f.remoteTag[path][tag]; ok {
		return rev, nil
	}
	return "", fmt.Errorf("no tag %q for %s", tag, path)
}

func (f *fakeRevisions) UpstreamRevision(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev, ok := f.upstream[path]; ok {
		return rev, nil
	}
	return "", fmt.Errorf("no upstream for %s", path)
}

func (f *fakeRevisions) DefaultBranch(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.defaultBranch[path]; ok {
		return name, nil
	}
	return "", fmt.Errorf("no default branch for %s", path)
}

func pkg(identity string) plugin.InstalledPackage {
	return plugin.InstalledPackage{Identity: identity, Path: "/plugins/" + identity}
}

// TestUpdateChecker_DivergenceDetection tests record emission rules
func TestUpdateChecker_DivergenceDetection(t *testing.T) {
	revisions := newFakeRevisions()
	diverged := pkg("owner/diverged")
	current := pkg("owner/current")

	revisions.local[diverged.Path] = "abc123"
	revisions.upstream[diverged.Path] = "def456"
	revisions.local[current.Path] = "abc123"
	revisions.upstream[current.Path] = "abc123"

	checker := NewUpdateChecker(revisions, &fakeNotifier{}, 0)
	records := checker.Check(context.Background(), []plugin.InstalledPackage{diverged, current}, nil)

	require.Len(t, records, 1, "only the diverged package produces a record")
	assert.Equal(t, "owner/diverged", records[0].Identity)
	assert.Equal(t, "abc123", records[0].LocalRevision)
	assert.Equal(t, "def456", records[0].RemoteRevision)
}

// TestUpdateChecker_BoundedConcurrency verifies the sliding-window limit
func TestUpdateChecker_BoundedConcurrency(t *testing.T) {
	revisions := newFakeRevisions()
	revisions.fetchDelay = 20 * time.Millisecond

	var pkgs []plugin.InstalledPackage
	for i := 0; i < 5; i++ {
		p := pkg(fmt.Sprintf("owner/repo-%d", i))
		pkgs = append(pkgs, p)
		revisions.local[p.Path] = "aaa"
		revisions.upstream[p.Path] = "aaa"
	}

	var progressMu sync.Mutex
	fetchDone := 0
	checker := NewUpdateChecker(revisions, &fakeNotifier{}, 2)
	checker.Check(context.Background(), pkgs, func(done, total int, identity string) {
		progressMu.Lock()
		defer progressMu.Unlock()
		if fetchDone < total {
			fetchDone = done
		}
	})

	assert.LessOrEqual(t, revisions.maxInFlight, 2, "never more than the limit in flight")
	assert.GreaterOrEqual(t, revisions.maxInFlight, 2, "the window should actually fill")
	assert.Equal(t, 5, fetchDone, "every package is accounted for")
}

// TestUpdateChecker_PartialFailureIsolation tests that one failed fetch
// does not disturb the rest of the batch
func TestUpdateChecker_PartialFailureIsolation(t *testing.T) {
	revisions := newFakeRevisions()
	notifier := &fakeNotifier{}

	var pkgs []plugin.InstalledPackage
	for i := 0; i < 5; i++ {
		p := pkg(fmt.Sprintf("owner/repo-%d", i))
		pkgs = append(pkgs, p)
		revisions.local[p.Path] = "aaa"
		revisions.upstream[p.Path] = "bbb"
	}
	revisions.fetchErr[pkgs[2].Path] = errors.New("connection reset")

	checker := NewUpdateChecker(revisions, notifier, 2)

	finalCalls := 0
	records := checker.Check(context.Background(), pkgs, nil)
	finalCalls++

	require.Equal(t, 1, finalCalls)
	assert.Len(t, records, 4, "the four healthy packages still produce divergences")
	for _, r := range records {
		assert.NotEqual(t, "owner/repo-2", r.Identity)
	}
	assert.Equal(t, 1, notifier.warningCount(), "the failed fetch is reported as a warning")
}

// TestUpdateChecker_ProgressCallbacks counts fetch and compare notifications
func TestUpdateChecker_ProgressCallbacks(t *testing.T) {
	revisions := newFakeRevisions()

	var pkgs []plugin.InstalledPackage
	for i := 0; i < 3; i++ {
		p := pkg(fmt.Sprintf("owner/repo-%d", i))
		pkgs = append(pkgs, p)
		revisions.local[p.Path] = "aaa"
		revisions.upstream[p.Path] = "aaa"
	}

	calls := 0
	checker := NewUpdateChecker(revisions, &fakeNotifier{}, 1)
	checker.Check(context.Background(), pkgs, func(done, total int, identity string) {
		calls++
		assert.Equal(t, 3, total)
	})

	assert.Equal(t, 6, calls, "one callback per fetch plus one per comparison")
}

// TestUpdateChecker_ProgressCountsFailedFetches verifies both phases reach
// the full total even when a fetch fails
func TestUpdateChecker_ProgressCountsFailedFetches(t *testing.T) {
	revisions := newFakeRevisions()

	var pkgs []plugin.InstalledPackage
	for i := 0; i < 3; i++ {
		p := pkg(fmt.Sprintf("owner/repo-%d", i))
		pkgs = append(pkgs, p)
		revisions.local[p.Path] = "aaa"
		revisions.upstream[p.Path] = "bbb"
	}
	revisions.fetchErr[pkgs[1].Path] = errors.New("timeout")

	var mu sync.Mutex
	var dones []int
	checker := NewUpdateChecker(revisions, &fakeNotifier{}, 1)
	checker.Check(context.Background(), pkgs, func(done, total int, identity string) {
		mu.Lock()
		defer mu.Unlock()
		dones = append(dones, done)
	})

	sort.Ints(dones)
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3}, dones,
		"the fetch phase and the compare phase each count up to the total")
}

// TestUpdateChecker_RemoteResolutionPrecedence walks the fallback chain
func TestUpdateChecker_RemoteResolutionPrecedence(t *testing.T) {
	t.Run("OverrideResolvesAsBranchFirst", func(t *testing.T) {
		revisions := newFakeRevisions()
		p := pkg("owner/pinned")
		p.Branch = "release"
		revisions.local[p.Path] = "aaa"
		revisions.setBranch(p.Path, "release", "bbb")
		revisions.setTag(p.Path, "release", "ccc")

		checker := NewUpdateChecker(revisions, &fakeNotifier{}, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		require.Len(t, records, 1)
		assert.Equal(t, "bbb", records[0].RemoteRevision, "branch resolution wins over tag")
	})

	t.Run("OverrideFallsBackToTag", func(t *testing.T) {
		revisions := newFakeRevisions()
		p := pkg("owner/tagged")
		p.Branch = "v1.2.3"
		revisions.local[p.Path] = "aaa"
		revisions.setTag(p.Path, "v1.2.3", "ddd")

		checker := NewUpdateChecker(revisions, &fakeNotifier{}, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		require.Len(t, records, 1)
		assert.Equal(t, "ddd", records[0].RemoteRevision)
	})

	t.Run("UnresolvableOverride_ExcludesPackage", func(t *testing.T) {
		revisions := newFakeRevisions()
		notifier := &fakeNotifier{}
		p := pkg("owner/broken")
		p.Branch = "missing"
		revisions.local[p.Path] = "aaa"

		checker := NewUpdateChecker(revisions, notifier, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		assert.Empty(t, records)
		assert.Equal(t, 1, notifier.warningCount())
	})

	t.Run("UpstreamBeatsDefaultBranch", func(t *testing.T) {
		revisions := newFakeRevisions()
		p := pkg("owner/tracked")
		revisions.local[p.Path] = "aaa"
		revisions.upstream[p.Path] = "eee"
		revisions.defaultBranch[p.Path] = "main"
		revisions.setBranch(p.Path, "main", "fff")

		checker := NewUpdateChecker(revisions, &fakeNotifier{}, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		require.Len(t, records, 1)
		assert.Equal(t, "eee", records[0].RemoteRevision)
	})

	t.Run("DefaultBranchWhenNoUpstream", func(t *testing.T) {
		revisions := newFakeRevisions()
		p := pkg("owner/detached")
		revisions.local[p.Path] = "aaa"
		revisions.defaultBranch[p.Path] = "develop"
		revisions.setBranch(p.Path, "develop", "ggg")

		checker := NewUpdateChecker(revisions, &fakeNotifier{}, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		require.Len(t, records, 1)
		assert.Equal(t, "ggg", records[0].RemoteRevision)
	})

	t.Run("ConventionalNamesAsLastResort", func(t *testing.T) {
		revisions := newFakeRevisions()
		p := pkg("owner/bare")
		revisions.local[p.Path] = "aaa"
		revisions.setBranch(p.Path, "master", "hhh")

		checker := NewUpdateChecker(revisions, &fakeNotifier{}, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		require.Len(t, records, 1)
		assert.Equal(t, "hhh", records[0].RemoteRevision, "master is tried after main fails")
	})

	t.Run("ExhaustedFallbacks_ExcludesPackage", func(t *testing.T) {
		revisions := newFakeRevisions()
		notifier := &fakeNotifier{}
		p := pkg("owner/unresolvable")
		revisions.local[p.Path] = "aaa"

		checker := NewUpdateChecker(revisions, notifier, 0)
		records := checker.Check(context.Background(), []plugin.InstalledPackage{p}, nil)

		assert.Empty(t, records)
		assert.Equal(t, 1, notifier.warningCount())
	})
}

// TestUpdateChecker_ResultsKeepInputOrder verifies deterministic output
func TestUpdateChecker_ResultsKeepInputOrder(t *testing.T) {
	revisions := newFakeRevisions()

	var pkgs []plugin.InstalledPackage
	for i := 0; i < 4; i++ {
		p := pkg(fmt.Sprintf("owner/repo-%d", i))
		pkgs = append(pkgs, p)
		revisions.local[p.Path] = "aaa"
		revisions.upstream[p.Path] = "bbb"
	}

	checker := NewUpdateChecker(revisions, &fakeNotifier{}, 4)
	records := checker.Check(context.Background(), pkgs, nil)

	require.Len(t, records, 4)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("owner/repo-%d", i), r.Identity)
	}
}
