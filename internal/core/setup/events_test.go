package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBus_Emit_DispatchesToMatchingListeners tests name matching
func TestBus_Emit_DispatchesToMatchingListeners(t *testing.T) {
	bus := NewBus()

	var gotA, gotB int
	bus.Subscribe([]string{"a"}, func(Event) bool { gotA++; return false })
	bus.Subscribe([]string{"b"}, func(Event) bool { gotB++; return false })

	bus.Emit(Event{Name: "a"})
	bus.Emit(Event{Name: "a"})
	bus.Emit(Event{Name: "c"})

	assert.Equal(t, 2, gotA, "listener for a should see both firings of a")
	assert.Zero(t, gotB, "listener for b should see nothing")
}

// TestBus_ConsumedListener_IsRemoved tests consume-on-true semantics
func TestBus_ConsumedListener_IsRemoved(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe([]string{"e"}, func(Event) bool {
		calls++
		return true
	})

	bus.Emit(Event{Name: "e"})
	bus.Emit(Event{Name: "e"})

	assert.Equal(t, 1, calls, "consumed listener must not fire again")
	assert.Zero(t, bus.Pending())
}

// TestBus_UnconsumedListener_Persists tests that a declined firing keeps the listener
func TestBus_UnconsumedListener_Persists(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe([]string{"e"}, func(Event) bool {
		calls++
		return calls == 2
	})

	bus.Emit(Event{Name: "e"})
	assert.Equal(t, 1, bus.Pending(), "declined firing keeps the listener registered")

	bus.Emit(Event{Name: "e"})
	assert.Zero(t, bus.Pending())
	assert.Equal(t, 2, calls)
}

// TestBus_Unsubscribe tests explicit removal
func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe([]string{"e"}, func(Event) bool { calls++; return false })
	bus.Unsubscribe(id)

	bus.Emit(Event{Name: "e"})
	assert.Zero(t, calls)
}

// TestBus_ListenerMatchingSeveralNames tests multi-event subscriptions
func TestBus_ListenerMatchingSeveralNames(t *testing.T) {
	bus := NewBus()

	var seen []string
	bus.Subscribe([]string{"open", "write"}, func(e Event) bool {
		seen = append(seen, e.Name)
		return false
	})

	bus.Emit(Event{Name: "write"})
	bus.Emit(Event{Name: "open"})

	assert.Equal(t, []string{"write", "open"}, seen)
}
