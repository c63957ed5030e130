// Package telemetry tracks client-side counters for a monitoring session.
package telemetry

import (
	"sync/atomic"
)

// Metrics tracks protocol and rendering counters. All methods are safe for
// concurrent use and safe on a nil receiver so call sites need no guards.
type Metrics struct {
	TasksSubmitted     atomic.Int64
	SubmissionFailures atomic.Int64
	StepsReceived      atomic.Int64
	StepsIgnored       atomic.Int64
	FramesDelivered    atomic.Int64
	FramesFailed       atomic.Int64
	DecodeFailures     atomic.Int64
	TerminalsReceived  atomic.Int64
	CancellationsSent  atomic.Int64
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordTaskSubmitted increments the submission counter.
func (m *Metrics) RecordTaskSubmitted() {
	if m == nil {
		return
	}
	m.TasksSubmitted.Add(1)
}

// RecordSubmissionFailure increments the failed-submission counter.
func (m *Metrics) RecordSubmissionFailure() {
	if m == nil {
		return
	}
	m.SubmissionFailures.Add(1)
}

// RecordStep counts one applied step event.
func (m *Metrics) RecordStep() {
	if m == nil {
		return
	}
	m.StepsReceived.Add(1)
}

// RecordStepIgnored counts a step event dropped by the running-phase guard.
func (m *Metrics) RecordStepIgnored() {
	if m == nil {
		return
	}
	m.StepsIgnored.Add(1)
}

// RecordFrame counts one decoded screenshot frame.
func (m *Metrics) RecordFrame() {
	if m == nil {
		return
	}
	m.FramesDelivered.Add(1)
}

// RecordFrameFailure counts a screenshot payload that failed to decode.
func (m *Metrics) RecordFrameFailure() {
	if m == nil {
		return
	}
	m.FramesFailed.Add(1)
}

// RecordDecodeFailure counts an inbound message that matched no known shape.
func (m *Metrics) RecordDecodeFailure() {
	if m == nil {
		return
	}
	m.DecodeFailures.Add(1)
}

// RecordTerminal counts a terminal event that ended a session.
func (m *Metrics) RecordTerminal() {
	if m == nil {
		return
	}
	m.TerminalsReceived.Add(1)
}

// RecordCancellation counts an outbound cancellation token.
func (m *Metrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.CancellationsSent.Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		TasksSubmitted:     m.TasksSubmitted.Load(),
		SubmissionFailures: m.SubmissionFailures.Load(),
		StepsReceived:      m.StepsReceived.Load(),
		StepsIgnored:       m.StepsIgnored.Load(),
		FramesDelivered:    m.FramesDelivered.Load(),
		FramesFailed:       m.FramesFailed.Load(),
		DecodeFailures:     m.DecodeFailures.Load(),
		TerminalsReceived:  m.TerminalsReceived.Load(),
		CancellationsSent:  m.CancellationsSent.Load(),
	}
}

// Snapshot is a point-in-time copy of session metrics.
type Snapshot struct {
	TasksSubmitted     int64 `json:"tasks_submitted"`
	SubmissionFailures int64 `json:"submission_failures"`
	StepsReceived      int64 `json:"steps_received"`
	StepsIgnored       int64 `json:"steps_ignored"`
	FramesDelivered    int64 `json:"frames_delivered"`
	FramesFailed       int64 `json:"frames_failed"`
	DecodeFailures     int64 `json:"decode_failures"`
	TerminalsReceived  int64 `json:"terminals_received"`
	CancellationsSent  int64 `json:"cancellations_sent"`
}
