package events

import "sync"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Ring is a bounded in-memory emitter retaining the most recent events for
// the RPC event query. Older entries are evicted once capacity is reached.
type Ring struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewRing creates a ring emitter retaining up to max events. A non-positive
// max falls back to 256.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = 256
	}
	return &Ring{max: max}
}

// Emit implements the Emitter interface.
func (r *Ring) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if len(r.events) > r.max {
		r.events = r.events[len(r.events)-r.max:]
	}
}

// Recent returns a snapshot of the retained events, oldest first.
func (r *Ring) Recent() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
