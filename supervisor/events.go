package supervisor

import (
	"sync"
	"time"
)

// OutputEvent carries one decoded line from the worker's stdout.
type OutputEvent struct {
	// Data is the line, without the trailing newline
	Data string

	// Timestamp is the capture time of the line
	Timestamp time.Time
}

// ErrorEvent carries one decoded line from the worker's stderr.
type ErrorEvent struct {
	// Data is the line, without the trailing newline
	Data string

	// Timestamp is the capture time of the line
	Timestamp time.Time
}

// StateEvent describes one committed state transition.
type StateEvent struct {
	// Previous is the state before the transition
	Previous State

	// Current is the state after the transition
	Current State

	// Timestamp is the commit time of the transition
	Timestamp time.Time
}

// Observer receives worker events. Output and error events are
// delivered from the stream pump goroutines; state events are
// delivered synchronously from within the state setter, after the
// state is committed. Observers must not call back into the
// supervisor lifecycle from within a callback.
type Observer interface {
	OutputReceived(OutputEvent)
	ErrorReceived(ErrorEvent)
	StateChanged(StateEvent)
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are skipped.
type ObserverFuncs struct {
	OnOutput func(OutputEvent)
	OnError  func(ErrorEvent)
	OnState  func(StateEvent)
}

func (o ObserverFuncs) OutputReceived(e OutputEvent) {
	if o.OnOutput != nil {
		o.OnOutput(e)
	}
}

func (o ObserverFuncs) ErrorReceived(e ErrorEvent) {
	if o.OnError != nil {
		o.OnError(e)
	}
}

func (o ObserverFuncs) StateChanged(e StateEvent) {
	if o.OnState != nil {
		o.OnState(e)
	}
}

// eventBus fans events out to registered observers. Registration is
// explicit and unregistration deterministic: the func returned by
// subscribe removes exactly the observer it was created for.
type eventBus struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]Observer
}

func newEventBus() *eventBus {
	return &eventBus{
		observers: map[int]Observer{},
	}
}

func (b *eventBus) subscribe(o Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = o

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.observers, id)
		})
	}
}

// snapshot copies the current observer set so delivery does not hold
// the registry lock.
func (b *eventBus) snapshot() []Observer {
	b.mu.Lock()
	defer b.mu.Unlock()

	observers := make([]Observer, 0, len(b.observers))
	for _, o := range b.observers {
		observers = append(observers, o)
	}
	return observers
}

func (b *eventBus) emitOutput(e OutputEvent) {
	for _, o := range b.snapshot() {
		o.OutputReceived(e)
	}
}

func (b *eventBus) emitError(e ErrorEvent) {
	for _, o := range b.snapshot() {
		o.ErrorReceived(e)
	}
}

func (b *eventBus) emitState(e StateEvent) {
	for _, o := range b.snapshot() {
		o.StateChanged(e)
	}
}
