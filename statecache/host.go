package statecache

import (
	"context"
	"sync"
)

// Host is the central state container the cache lives in. Dispatch must
// apply Reduce to the current state, publish the result and return it.
type Host interface {
	Dispatch(ctx context.Context, ev Event) State
	State() State
}

// Listener observes every state transition.
type Listener func(next State, ev Event)

// MemoryHost is a minimal Host that keeps the state in memory and serializes
// dispatches.
type MemoryHost struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

var _ Host = (*MemoryHost)(nil)

// NewMemoryHost returns a host holding an empty cache.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{listeners: make(map[int]Listener)}
}

// Dispatch reduces ev into the current state, notifies listeners and
// returns the state ev produced.
func (h *MemoryHost) Dispatch(_ context.Context, ev Event) State {
	h.mu.Lock()
	h.state = Reduce(h.state, ev)
	next := h.state
	listeners := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l(next, ev)
	}
	return next
}

// State returns the current snapshot.
func (h *MemoryHost) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Subscribe registers l and returns a function that removes it.
func (h *MemoryHost) Subscribe(l Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = l

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}
