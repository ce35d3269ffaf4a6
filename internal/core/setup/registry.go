// Package setup tracks per-plugin setup descriptors and activation state,
// and schedules setup hooks in dependency order. The registry is an explicit
// caller-owned object rather than package state, so independent managers
// (and tests) get clean isolation.
package setup

import (
	"fmt"
	"sync"
)

// State is the activation state of one plugin identity. Completed is
// terminal and absorbing: re-activation of a completed identity is a no-op.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateWaiting
	StateActivating
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateWaiting:
		return "waiting"
	case StateActivating:
		return "activating"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Descriptor captures one plugin's registered setup: the hook to run, the
// identities that must be activated first, and the events (if any) that
// defer the hook.
type Descriptor struct {
	// Action is the zero-argument setup hook. Nil means no setup needed.
	Action func()

	// Dependencies lists plugin identities activated before Action runs.
	Dependencies []string

	// Events defers Action until the first firing of any named event.
	// Empty means Action runs immediately after install.
	Events []string
}

// Registry maps plugin identity to its setup descriptor and activation
// state. It also records which identities the installer has confirmed
// present, since installation must precede setup. Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	setups    map[string]Descriptor
	order     []string
	states    map[string]State
	installed map[string]struct{}
}

// NewRegistry creates an empty setup registry.
func NewRegistry() *Registry {
	return &Registry{
		setups:    make(map[string]Descriptor),
		states:    make(map[string]State),
		installed: make(map[string]struct{}),
	}
}

// Register stores a setup descriptor under an identity. Registering the
// same identity again replaces the descriptor but keeps a completed state,
// so a hook never runs twice.
func (r *Registry) Register(identity string, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.setups[identity]; !ok {
		r.order = append(r.order, identity)
	}
	r.setups[identity] = d
	if r.states[identity] != StateCompleted {
		r.states[identity] = StateRegistered
	}
}

// Lookup returns the descriptor registered for an identity.
func (r *Registry) Lookup(identity string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.setups[identity]
	return d, ok
}

// Identities returns registered identities in registration order.
func (r *Registry) Identities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// MarkInstalled records that the installer confirmed a package present.
func (r *Registry) MarkInstalled(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installed[identity] = struct{}{}
}

// Installed reports whether an identity has been confirmed installed.
func (r *Registry) Installed(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.installed[identity]
	return ok
}

// StateOf returns the activation state of an identity.
func (r *Registry) StateOf(identity string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[identity]
}

// setState transitions an identity's state. Completed is absorbing.
func (r *Registry) setState(identity string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states[identity] == StateCompleted {
		return
	}
	r.states[identity] = s
}

// beginActivation atomically claims the right to run an identity's hook.
// It returns false when the identity already completed or another caller
// is mid-activation, which is what makes repeated event firings and
// re-entrant scheduler passes idempotent.
func (r *Registry) beginActivation(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.states[identity] {
	case StateCompleted, StateActivating:
		return false
	}
	r.states[identity] = StateActivating
	return true
}

// markCompleted transitions an identity to the terminal state.
func (r *Registry) markCompleted(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[identity] = StateCompleted
}
