package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marigold-labs/lookout/pkg/protocol"
)

func TestReduceIsPure(t *testing.T) {
	state := State{
		SubmissionID: "sub-1",
		Phase:        PhaseRunning,
		Log:          []string{"Step 1: opening"},
	}

	out := Reduce(state, inputStep{Event: protocol.StepEvent{Step: 2, Thought: "typing"}})

	assert.Len(t, state.Log, 1, "input state must not be mutated")
	assert.Len(t, out.Log, 2)
}

func TestReduceSubmitResetsEverything(t *testing.T) {
	state := State{
		SubmissionID: "sub-1",
		Task:         "old",
		Phase:        PhaseErrored,
		Log:          []string{"Step 1: opening"},
		Outcome:      "Error: boom",
	}

	out := Reduce(state, inputSubmit{SubmissionID: "sub-2", Task: "new"})

	assert.Equal(t, PhaseRunning, out.Phase)
	assert.Equal(t, "new", out.Task)
	assert.Equal(t, "sub-2", out.SubmissionID)
	assert.Empty(t, out.Log)
	assert.Nil(t, out.LatestFrame)
	assert.Empty(t, out.Outcome)
}

func TestReduceSubmitFailedGuards(t *testing.T) {
	running := State{SubmissionID: "sub-2", Phase: PhaseRunning}

	// Failure report for a superseded submission is dropped.
	unchanged := Reduce(running, inputSubmitFailed{SubmissionID: "sub-1", Message: "timeout"})
	assert.Equal(t, running, unchanged)

	// Matching submission moves to Errored.
	errored := Reduce(running, inputSubmitFailed{SubmissionID: "sub-2", Message: "timeout"})
	assert.Equal(t, PhaseErrored, errored.Phase)
	assert.Equal(t, "timeout", errored.Outcome)

	// A session that already ended is never resurrected.
	done := State{SubmissionID: "sub-2", Phase: PhaseDone, Outcome: "OK"}
	assert.Equal(t, done, Reduce(done, inputSubmitFailed{SubmissionID: "sub-2", Message: "timeout"}))
}

func TestReduceIgnoresEventsOutsideRunning(t *testing.T) {
	for _, phase := range []Phase{PhaseIdle, PhaseDone, PhaseErrored} {
		state := State{Phase: phase, Outcome: "settled"}

		afterStep := Reduce(state, inputStep{Event: protocol.StepEvent{Step: 1, Thought: "late"}})
		assert.Equal(t, state, afterStep, "phase %s", phase)

		afterTerminal := Reduce(state, inputTerminal{Event: protocol.TerminalEvent{Status: protocol.StatusDone, Result: "new"}})
		assert.Equal(t, state, afterTerminal, "phase %s", phase)
	}
}

func TestPhaseStrings(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "running", PhaseRunning.String())
	assert.Equal(t, "done", PhaseDone.String())
	assert.Equal(t, "errored", PhaseErrored.String())
	assert.True(t, PhaseDone.Terminal())
	assert.False(t, PhaseRunning.Terminal())
}
