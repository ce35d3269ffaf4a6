package setup

import (
	"sort"
	"sync"
)

// EventEnter is the distinguished "on-enter" event. Unlike every other
// event, it is honored even when it originates from a transient overlay
// buffer, because it is the only event that fires reliably in that context.
const EventEnter = "enter"

// Event is one named runtime occurrence forwarded by the host.
type Event struct {
	// Name is the event name listeners match against.
	Name string

	// TransientOrigin marks firings that originate from a transient buffer
	// context (for example a virtual or overlay file). Such firings are
	// ignored for every event except EventEnter.
	TransientOrigin bool
}

// listenerFunc handles one matching firing. Returning true consumes the
// listener; returning false keeps it registered for later firings.
type listenerFunc func(Event) bool

type listener struct {
	names map[string]struct{}
	fn    listenerFunc
}

// Bus dispatches runtime events to registered listeners. Listeners persist
// until they report a firing as consumed, so an event that never fires
// simply leaves its listener idle. Safe for concurrent use.
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]*listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[int]*listener)}
}

// Subscribe registers fn for the named events and returns a token usable
// with Unsubscribe. The listener stays registered until fn returns true.
func (b *Bus) Subscribe(names []string, fn listenerFunc) int {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = &listener{names: set, fn: fn}
	return id
}

// Unsubscribe removes a listener. Unknown tokens are ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, id)
}

// Emit delivers an event to every listener subscribed to its name, in
// subscription order, so a dependency scheduled before its dependent also
// activates first when both gate on the same event. Consumed listeners are
// removed. Handlers run outside the bus lock so a handler may subscribe or
// emit without deadlocking.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	type match struct {
		id int
		fn listenerFunc
	}
	var matches []match
	for id, l := range b.listeners {
		if _, ok := l.names[e.Name]; ok {
			matches = append(matches, match{id: id, fn: l.fn})
		}
	}
	b.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].id < matches[j].id })

	for _, m := range matches {
		if m.fn(e) {
			b.Unsubscribe(m.id)
		}
	}
}

// Pending reports how many listeners are currently registered.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
