package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plugvine/plugvine/internal/core/domain/plugin"
	"github.com/plugvine/plugvine/internal/core/ports"
	"github.com/plugvine/plugvine/internal/core/setup"
	"github.com/plugvine/plugvine/internal/core/spec"
)

// Manager owns all lifecycle state for one set of plugins: the registration
// queue, the setup registry, activation state, and per-plugin branch
// overrides. It is an explicit caller-owned object, so independent managers
// coexist cleanly. Safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	queue     []plugin.Source
	overrides map[string]string

	registry  *setup.Registry
	bus       *setup.Bus
	scheduler *setup.Scheduler

	installer ports.Installer
	checker   *UpdateChecker
	selector  ports.UpdateSelector
	notifier  ports.Notifier

	keepQueue bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	parallel  int
	debounce  time.Duration
	keepQueue bool
}

// WithParallel bounds simultaneous remote fetches during update checks.
func WithParallel(n int) ManagerOption {
	return func(c *managerConfig) { c.parallel = n }
}

// WithSetupDebounce overrides the delay between an event firing and the
// gated setup hook running.
func WithSetupDebounce(d time.Duration) ManagerOption {
	return func(c *managerConfig) { c.debounce = d }
}

// WithKeepQueue leaves the registration queue intact across Install calls,
// so one global source set can be re-installed. The default drains the
// queue, supporting independent install batches.
func WithKeepQueue() ManagerOption {
	return func(c *managerConfig) { c.keepQueue = true }
}

// NewManager wires a lifecycle manager to its external collaborators.
func NewManager(installer ports.Installer, revisions ports.RevisionSource, selector ports.UpdateSelector, notifier ports.Notifier, opts ...ManagerOption) *Manager {
	cfg := managerConfig{
		parallel: DefaultParallel,
		debounce: setup.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := setup.NewRegistry()
	bus := setup.NewBus()
	return &Manager{
		overrides: make(map[string]string),
		registry:  registry,
		bus:       bus,
		scheduler: setup.NewScheduler(registry, bus, setup.WithDebounce(cfg.debounce)),
		installer: installer,
		checker:   NewUpdateChecker(revisions, notifier, cfg.parallel),
		selector:  selector,
		notifier:  notifier,
		keepQueue: cfg.keepQueue,
	}
}

// Register appends one source value to the registration queue. Side-effect
// only; nothing is resolved until Install.
func (m *Manager) Register(src plugin.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, src)
}

// RegisterAll appends several sources in order.
func (m *Manager) RegisterAll(srcs []plugin.Source) {
	for _, src := range srcs {
		m.Register(src)
	}
}

// Events returns the runtime event bus gating deferred setups. Hosts emit
// events here; the first matching firing activates a waiting hook.
func (m *Manager) Events() *setup.Bus { return m.bus }

// Registry exposes the setup registry, mainly so hosts can inspect
// activation state.
func (m *Manager) Registry() *setup.Registry { return m.registry }

// BranchOverride returns the pinned branch or tag for an identity, if any.
func (m *Manager) BranchOverride(identity string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overrides[identity]
}

// Install drains the registration queue, resolves every source into the
// flat installation set, hands the set to the installer, and activates
// setup hooks in dependency order. Per-entry configuration errors and
// per-branch setup failures are reported and skipped; they never abort the
// whole install.
func (m *Manager) Install(ctx context.Context) error {
	m.mu.Lock()
	queue := m.queue
	if !m.keepQueue {
		m.queue = nil
	}
	m.mu.Unlock()

	var set []plugin.Descriptor
	seen := make(map[string]struct{})
	for _, src := range queue {
		m.expand(src, nil, seen, &set)
	}
	if len(set) == 0 {
		m.notifier.Infof("nothing to install")
		return nil
	}

	installed, err := m.installer.EnsureInstalled(ctx, set)
	if err != nil {
		// Failures are scoped to their own plugins. Only the plugins that
		// made it onto disk are marked installed; setup still runs for them.
		m.notifier.Errorf("install incomplete: %v", err)
	}
	for _, d := range installed {
		if id, ok := spec.IdentityOfDescriptor(d); ok {
			m.registry.MarkInstalled(id)
		}
	}

	for _, err := range m.scheduler.ActivateAll() {
		m.notifier.Errorf("%v", err)
	}
	return nil
}

// expand recursively resolves one source into descriptors, registering
// setup descriptors and branch overrides along the way. Events declared on
// a parent propagate to required plugins that declare none of their own.
func (m *Manager) expand(src plugin.Source, inheritedEvents []string, seen map[string]struct{}, out *[]plugin.Descriptor) {
	switch src.Kind() {
	case plugin.KindGroup:
		for _, member := range src.Members() {
			m.expand(member, inheritedEvents, seen, out)
		}

	case plugin.KindIdentifier:
		d := plugin.Descriptor{Source: spec.ExpandSource(src.Ident())}
		m.append(d, seen, out)

	case plugin.KindSingle:
		single := src.Single()
		d := spec.NormalizeSingle(single)
		id, ok := spec.IdentityOfDescriptor(d)
		if !ok {
			m.notifier.Warnf("skipping plugin with unresolvable source %q", single.Source)
			return
		}
		m.append(d, seen, out)

		if single.Version != "" {
			m.mu.Lock()
			m.overrides[id] = single.Version
			m.mu.Unlock()
		}

		events := single.Events
		if len(events) == 0 {
			events = inheritedEvents
		}

		if single.Setup != nil {
			var deps []string
			for _, req := range single.Requires {
				if depID, ok := spec.IdentityOf(req); ok {
					deps = append(deps, depID)
				}
			}
			m.registry.Register(id, setup.Descriptor{
				Action:       single.Setup,
				Dependencies: deps,
				Events:       events,
			})
		}

		for _, req := range single.Requires {
			m.expand(req, events, seen, out)
		}
	}
}

func (m *Manager) append(d plugin.Descriptor, seen map[string]struct{}, out *[]plugin.Descriptor) {
	id, ok := spec.IdentityOfDescriptor(d)
	if !ok {
		m.notifier.Warnf("skipping plugin with unresolvable source %q", d.Source)
		return
	}
	if _, dup := seen[id]; dup {
		return
	}
	seen[id] = struct{}{}
	*out = append(*out, d)
}

// seedOverrides records branch pins from queued sources without draining
// the queue or touching the installer, so Update sees pins even when
// Install never ran in this process.
func (m *Manager) seedOverrides() {
	m.mu.Lock()
	queue := append([]plugin.Source(nil), m.queue...)
	m.mu.Unlock()
	for _, src := range queue {
		m.walkOverrides(src)
	}
}

func (m *Manager) walkOverrides(src plugin.Source) {
	switch src.Kind() {
	case plugin.KindGroup:
		for _, member := range src.Members() {
			m.walkOverrides(member)
		}
	case plugin.KindSingle:
		single := src.Single()
		if single.Version != "" {
			if id, ok := spec.Identity(spec.ExpandSource(single.Source)); ok {
				m.mu.Lock()
				m.overrides[id] = single.Version
				m.mu.Unlock()
			}
		}
		for _, req := range single.Requires {
			m.walkOverrides(req)
		}
	}
}

// Update asks the installer for the installed-package list, reconciles each
// package against its remote, surfaces divergences to the selector, and
// dispatches the chosen subset to the installer's batch update. An empty
// selection is a no-op.
func (m *Manager) Update(ctx context.Context) error {
	m.seedOverrides()

	pkgs, err := m.installer.Installed(ctx)
	if err != nil {
		return fmt.Errorf("listing installed packages: %w", err)
	}
	if len(pkgs) == 0 {
		m.notifier.Infof("no packages installed")
		return nil
	}

	for i := range pkgs {
		if pkgs[i].Branch == "" {
			pkgs[i].Branch = m.BranchOverride(pkgs[i].Identity)
		}
	}

	records := m.checker.Check(ctx, pkgs, func(done, total int, identity string) {
		m.notifier.Infof("checked %s (%d/%d)", identity, done, total)
	})
	if len(records) == 0 {
		m.notifier.Infof("all packages up to date")
		return nil
	}

	selected, err := m.selector.Select(ctx, records)
	if err != nil {
		return fmt.Errorf("selecting updates: %w", err)
	}
	if len(selected) == 0 {
		m.notifier.Infof("no packages selected")
		return nil
	}
	if len(selected) == 1 && selected[0] == ports.SelectAll {
		selected = selected[:0]
		for _, r := range records {
			selected = append(selected, r.Identity)
		}
	}

	if err := m.installer.BatchUpdate(ctx, selected); err != nil {
		return fmt.Errorf("updating packages: %w", err)
	}
	m.notifier.Infof("updated %d package(s)", len(selected))
	return nil
}
