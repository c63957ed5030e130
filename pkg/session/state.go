// Package session owns the client-side view of one remote task execution:
// the phase machine, the append-only step log, the most recent screenshot,
// and the terminal outcome. The Controller is the only writer; everything
// else observes snapshots.
package session

import (
	cryptorand "crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/marigold-labs/lookout/pkg/frame"
	"github.com/marigold-labs/lookout/pkg/protocol"
)

// Phase is the session's coarse state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseDone
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDone:
		return "done"
	case PhaseErrored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether the phase ends a session.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseErrored
}

// State is a snapshot of one session. It has value semantics: Snapshot
// copies the log so holders never observe later mutation.
//
// LatestFrame deliberately survives terminal events so the last screenshot
// stays visible after the session ends.
type State struct {
	SubmissionID string
	Task         string
	Phase        Phase
	Log          []string
	LatestFrame  *frame.Frame
	Outcome      string
}

func (s State) clone() State {
	out := s
	out.Log = append([]string(nil), s.Log...)
	return out
}

// Input is one unit of work applied to session state. Inputs are produced by
// the Controller only; the reducer below is the single place state changes.
type Input interface {
	isInput()
}

type inputSubmit struct {
	SubmissionID string
	Task         string
}

type inputSubmitFailed struct {
	SubmissionID string
	Message      string
}

type inputStep struct {
	Event protocol.StepEvent
	Frame *frame.Frame
}

type inputTerminal struct {
	Event protocol.TerminalEvent
}

func (inputSubmit) isInput()       {}
func (inputSubmitFailed) isInput() {}
func (inputStep) isInput()         {}
func (inputTerminal) isInput()     {}

// Reduce applies one input to session state. It is pure: no I/O, no clocks,
// no mutation of its arguments. Inputs that the current phase does not accept
// return the state unchanged.
func Reduce(state State, in Input) State {
	switch in := in.(type) {
	case inputSubmit:
		return reduceSubmit(state, in)
	case inputSubmitFailed:
		return reduceSubmitFailed(state, in)
	case inputStep:
		return reduceStep(state, in)
	case inputTerminal:
		return reduceTerminal(state, in)
	default:
		return state
	}
}

// reduceSubmit starts a new session: the log, frame, and outcome of any
// previous session are discarded. Rejected while a session is running.
func reduceSubmit(state State, in inputSubmit) State {
	if state.Phase == PhaseRunning {
		return state
	}
	return State{
		SubmissionID: in.SubmissionID,
		Task:         in.Task,
		Phase:        PhaseRunning,
		Log:          nil,
		LatestFrame:  nil,
		Outcome:      "",
	}
}

// reduceSubmitFailed records a failed one-shot submission. The submission ID
// guard keeps a slow failure response from clobbering a newer session that
// superseded it, and from resurrecting one the engine already terminated.
func reduceSubmitFailed(state State, in inputSubmitFailed) State {
	if state.Phase != PhaseRunning || state.SubmissionID != in.SubmissionID {
		return state
	}
	state.Phase = PhaseErrored
	state.Outcome = in.Message
	return state
}

// reduceStep appends one log line and replaces the latest frame when the
// event carried one. Events outside Running are stale and ignored.
func reduceStep(state State, in inputStep) State {
	if state.Phase != PhaseRunning {
		return state
	}
	out := state.clone()
	out.Log = append(out.Log, fmt.Sprintf("Step %d: %s", in.Event.Step, in.Event.Thought))
	if in.Frame != nil {
		out.LatestFrame = in.Frame
	}
	return out
}

// reduceTerminal ends the session. Applying the same terminal event again is
// a no-op because the phase guard no longer matches.
func reduceTerminal(state State, in inputTerminal) State {
	if state.Phase != PhaseRunning {
		return state
	}
	out := state.clone()
	if in.Event.Failed() {
		out.Phase = PhaseErrored
	} else {
		out.Phase = PhaseDone
	}
	out.Outcome = in.Event.Outcome()
	return out
}

var submissionEntropy = ulid.Monotonic(cryptorand.Reader, 0)

// newSubmissionID returns a unique ID naming one task submission in logs.
func newSubmissionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), submissionEntropy).String()
}
