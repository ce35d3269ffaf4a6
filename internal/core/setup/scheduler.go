package setup

import (
	"fmt"
	"time"
)

// DefaultDebounce is the delay between an event firing and the gated hook
// running, absorbing bursts of duplicate firings.
const DefaultDebounce = 50 * time.Millisecond

// CycleError reports a circular setup dependency between two identities.
type CycleError struct {
	Dependent  string
	Dependency string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular setup dependency: %q depends on %q which is already on the activation path", e.Dependent, e.Dependency)
}

// NotInstalledError reports a setup request for a plugin the installer
// never confirmed present.
type NotInstalledError struct {
	Identity string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("plugin %q is not installed; installation must precede setup", e.Identity)
}

// Scheduler activates setup hooks in strict depth-first dependency order,
// rejecting cycles and deferring event-gated hooks until their event fires.
type Scheduler struct {
	registry *Registry
	bus      *Bus
	debounce time.Duration
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDebounce overrides the event debounce delay. Zero runs gated hooks
// synchronously inside the event dispatch, which tests rely on.
func WithDebounce(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.debounce = d }
}

// NewScheduler creates a scheduler over a registry and event bus.
func NewScheduler(registry *Registry, bus *Bus, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		registry: registry,
		bus:      bus,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate runs (or schedules) the setup for one identity, activating its
// declared dependencies first. Completed identities short-circuit to
// success. A cycle or a not-installed dependency aborts this activation
// branch; anything that already ran stays run.
func (s *Scheduler) Activate(identity string) error {
	return s.activate(identity, map[string]struct{}{})
}

func (s *Scheduler) activate(identity string, activePath map[string]struct{}) error {
	if s.registry.StateOf(identity) == StateCompleted {
		return nil
	}
	if !s.registry.Installed(identity) {
		return &NotInstalledError{Identity: identity}
	}

	desc, ok := s.registry.Lookup(identity)
	if !ok {
		// Nothing to set up; the plugin is trivially activated.
		s.registry.markCompleted(identity)
		return nil
	}

	activePath[identity] = struct{}{}
	defer delete(activePath, identity)

	// Dependencies run eagerly, before the dependent's own hook, even when
	// the dependent is event-gated and its dependencies are not.
	for _, dep := range desc.Dependencies {
		if s.registry.StateOf(dep) == StateCompleted {
			continue
		}
		if _, onPath := activePath[dep]; onPath {
			return &CycleError{Dependent: identity, Dependency: dep}
		}
		if err := s.activate(dep, activePath); err != nil {
			return err
		}
	}

	if desc.Action == nil {
		s.registry.markCompleted(identity)
		return nil
	}

	if len(desc.Events) == 0 {
		if s.registry.beginActivation(identity) {
			desc.Action()
			s.registry.markCompleted(identity)
		}
		return nil
	}

	s.wait(identity, desc)
	return nil
}

// wait registers an event listener for a gated hook. The listener persists
// until a firing passes the transient-origin filter; the hook then runs
// after a debounce delay, guarded against duplicate firings.
func (s *Scheduler) wait(identity string, desc Descriptor) {
	if s.registry.StateOf(identity) == StateWaiting {
		// Already scheduled by an earlier pass.
		return
	}
	s.registry.setState(identity, StateWaiting)

	s.bus.Subscribe(desc.Events, func(e Event) bool {
		// Most events are unreliable when fired from a transient overlay
		// buffer; only the distinguished enter event is exempt.
		if e.TransientOrigin && e.Name != EventEnter {
			return false
		}
		s.fire(identity, desc.Action)
		return true
	})
}

func (s *Scheduler) fire(identity string, action func()) {
	run := func() {
		if s.registry.beginActivation(identity) {
			action()
			s.registry.markCompleted(identity)
		}
	}
	if s.debounce == 0 {
		run()
		return
	}
	time.AfterFunc(s.debounce, run)
}

// ActivateAll walks every registered setup in registration order. Each
// failure is scoped to its own branch; sibling branches still activate.
// The returned slice holds one error per failed branch.
func (s *Scheduler) ActivateAll() []error {
	var errs []error
	for _, identity := range s.registry.Identities() {
		if err := s.Activate(identity); err != nil {
			errs = append(errs, fmt.Errorf("setup of %s: %w", identity, err))
		}
	}
	return errs
}
