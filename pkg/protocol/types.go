// Package protocol defines the wire contract between lookout and the remote
// automation engine: the one-shot task submission request, the streamed step
// and terminal payloads, and the cancellation control token.
package protocol

import "strings"

// CancelToken is the fixed control token written to the streaming channel to
// request cancellation. It is a bare text frame, not a JSON payload.
const CancelToken = "stop"

// Status tags carried by terminal payloads.
const (
	StatusDone  = "done"
	StatusError = "error"
)

// TaskRequest is the body of the one-shot submission call.
type TaskRequest struct {
	Task string `json:"task"`
}

// Message is a decoded inbound channel payload. Exactly two concrete types
// implement it: StepEvent and TerminalEvent.
type Message interface {
	isMessage()
}

// StepEvent is one incremental progress observation emitted while a task runs.
//
// Step indexes are expected non-decreasing but neither unique nor contiguous;
// consumers apply events in delivery order without reordering.
type StepEvent struct {
	Step       int              `json:"step"`
	Thought    string           `json:"thought"`
	Actions    []map[string]any `json:"actions"`
	Screenshot string           `json:"screenshot,omitempty"`
}

func (StepEvent) isMessage() {}

// TerminalEvent ends a session. Status is StatusDone or StatusError; Result
// holds the final result text for done, Message the error text for error.
type TerminalEvent struct {
	Status  string `json:"status"`
	Result  string `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

func (TerminalEvent) isMessage() {}

// Failed reports whether the event ends the session in failure.
func (e TerminalEvent) Failed() bool {
	return e.Status == StatusError
}

// Outcome returns the operator-facing terminal text: the result for a done
// event, the error message for an error event.
func (e TerminalEvent) Outcome() string {
	if e.Failed() {
		return strings.TrimSpace(e.Message)
	}
	return strings.TrimSpace(e.Result)
}
