package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		attempts int
		want     State
	}{
		{OutcomeSuccess, 1, StateSucceeded},
		{OutcomeSuccess, MaxAttempts, StateSucceeded},
		{OutcomeRetryable, 1, StateRetryWait},
		{OutcomeRetryable, MaxAttempts - 1, StateRetryWait},
		{OutcomeRetryable, MaxAttempts, StateFailedTerminal},
		{OutcomeTerminal, 1, StateFailedTerminal},
	}
	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, next(tt.outcome, tt.attempts))
		})
	}
}

func TestStateFinal(t *testing.T) {
	assert.False(t, StatePending.Final())
	assert.False(t, StateInFlight.Final())
	assert.False(t, StateRetryWait.Final())
	assert.True(t, StateSucceeded.Final())
	assert.True(t, StateFailedTerminal.Final())
	assert.Equal(t, "retry_wait", StateRetryWait.String())
}
