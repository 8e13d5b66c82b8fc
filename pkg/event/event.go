// Package event provides the notification surface of the scenario engine.
//
// Signals replace the GUI-framework signal/slot mechanism with plain callback
// registration. Emission is synchronous and in registration order; the engine
// is single-writer so no locking is done.
package event

// Signal carries one payload type to any number of connected handlers.
// The zero value is ready to use.
type Signal[T any] struct {
	handlers []func(T)
	muted    bool
}

// Connect registers a handler. Handlers are invoked synchronously, in the
// order they were connected.
func (s *Signal[T]) Connect(fn func(T)) {
	s.handlers = append(s.handlers, fn)
}

// Emit delivers v to every connected handler.
func (s *Signal[T]) Emit(v T) {
	if s.muted {
		return
	}
	for _, fn := range s.handlers {
		fn(v)
	}
}

// SetMuted disables (or re-enables) emission. Used during bulk loads where
// intermediate states should not reach observers.
func (s *Signal[T]) SetMuted(muted bool) {
	s.muted = muted
}

// Void is the payload for signals that carry no data.
type Void struct{}

// VoidSignal is a Signal with no payload.
type VoidSignal = Signal[Void]

// EmitVoid emits an empty payload.
func EmitVoid(s *VoidSignal) {
	s.Emit(Void{})
}
