package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_started", StateNotStarted.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateNotStarted.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateStopped.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestLegalTransition(t *testing.T) {
	tests := []struct {
		from, to State
		legal    bool
	}{
		{StateNotStarted, StateStarting, true},
		{StateStarting, StateRunning, true},
		{StateStarting, StateStopping, true},
		{StateRunning, StateStopping, true},
		{StateStopping, StateStopped, true},
		{StateStopping, StateFailed, true},

		{StateNotStarted, StateRunning, false},
		{StateRunning, StateStopped, false},
		{StateRunning, StateFailed, false},
		{StateStopped, StateStarting, false},
		{StateFailed, StateStarting, false},
		{StateStopping, StateRunning, false},
		{StateStarting, StateFailed, false},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.legal, legalTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}
