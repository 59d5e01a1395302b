package events

import "debtvault/core/types"

// Event represents a structured state change emitted by the program.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. the ledger
// receipt, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers emitted events so the host can publish them only once the
// surrounding call has committed.
type Recorder struct {
	events []*types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	if payload := evt.Event(); payload != nil {
		r.events = append(r.events, payload)
	}
}

// Events returns the recorded payloads in emission order.
func (r *Recorder) Events() []*types.Event {
	if r == nil {
		return nil
	}
	return append([]*types.Event(nil), r.events...)
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	if r != nil {
		r.events = nil
	}
}
