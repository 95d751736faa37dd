package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	outputs []OutputEvent
	errors  []ErrorEvent
	states  []StateEvent
}

func (r *recordingObserver) OutputReceived(e OutputEvent) { r.outputs = append(r.outputs, e) }
func (r *recordingObserver) ErrorReceived(e ErrorEvent)   { r.errors = append(r.errors, e) }
func (r *recordingObserver) StateChanged(e StateEvent)    { r.states = append(r.states, e) }

func TestEventBus_DeliversToAllObservers(t *testing.T) {
	bus := newEventBus()

	a := &recordingObserver{}
	b := &recordingObserver{}
	bus.subscribe(a)
	bus.subscribe(b)

	bus.emitOutput(OutputEvent{Data: "hello", Timestamp: time.Now()})
	bus.emitError(ErrorEvent{Data: "oops", Timestamp: time.Now()})
	bus.emitState(StateEvent{Previous: StateNotStarted, Current: StateStarting})

	for _, o := range []*recordingObserver{a, b} {
		assert.Len(t, o.outputs, 1)
		assert.Equal(t, "hello", o.outputs[0].Data)
		assert.Len(t, o.errors, 1)
		assert.Equal(t, "oops", o.errors[0].Data)
		assert.Len(t, o.states, 1)
	}
}

func TestEventBus_DeliversWithoutObservers(t *testing.T) {
	bus := newEventBus()

	assert.NotPanics(t, func() {
		bus.emitOutput(OutputEvent{Data: "nobody listening"})
	})
}

func TestEventBus_UnsubscribeIsDeterministic(t *testing.T) {
	bus := newEventBus()

	a := &recordingObserver{}
	b := &recordingObserver{}
	unsubA := bus.subscribe(a)
	bus.subscribe(b)

	unsubA()
	bus.emitOutput(OutputEvent{Data: "after"})

	assert.Empty(t, a.outputs)
	assert.Len(t, b.outputs, 1)
}

func TestEventBus_UnsubscribeTwiceIsSafe(t *testing.T) {
	bus := newEventBus()

	unsub := bus.subscribe(&recordingObserver{})

	assert.NotPanics(t, func() {
		unsub()
		unsub()
	})
}

func TestObserverFuncs_NilCallbacksAreSkipped(t *testing.T) {
	var o Observer = ObserverFuncs{}

	assert.NotPanics(t, func() {
		o.OutputReceived(OutputEvent{})
		o.ErrorReceived(ErrorEvent{})
		o.StateChanged(StateEvent{})
	})
}

func TestObserverFuncs_ForwardsEvents(t *testing.T) {
	var got OutputEvent

	var o Observer = ObserverFuncs{
		OnOutput: func(e OutputEvent) { got = e },
	}

	o.OutputReceived(OutputEvent{Data: "line"})
	assert.Equal(t, "line", got.Data)
}
