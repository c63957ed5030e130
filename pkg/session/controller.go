package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/marigold-labs/lookout/pkg/frame"
	"github.com/marigold-labs/lookout/pkg/observability"
	"github.com/marigold-labs/lookout/pkg/protocol"
	"github.com/marigold-labs/lookout/pkg/telemetry"
)

var (
	// ErrSessionRunning rejects a submission while a task is in flight.
	ErrSessionRunning = errors.New("a task is already running")
	// ErrEmptyTask rejects a submission with no task text.
	ErrEmptyTask = errors.New("task text is empty")
)

// Transport is the outbound surface the controller drives: the one-shot
// submission call and the cancellation token on the streaming channel.
type Transport interface {
	SubmitTask(ctx context.Context, task string) error
	SendCancellation() error
}

// Controller is the single writer of session state. Inbound channel messages
// and operator commands are serialized through its mutex, so state always
// reflects one consistent delivery order.
type Controller struct {
	transport Transport
	metrics   *telemetry.Metrics
	log       *observability.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewController creates a controller in the Idle phase.
func NewController(transport Transport, metrics *telemetry.Metrics, log *observability.Logger) *Controller {
	if log == nil {
		log = observability.NewLogger("session", slog.LevelInfo)
	}
	return &Controller{
		transport: transport,
		metrics:   metrics,
		log:       log,
	}
}

// SetOnChange registers the render trigger, invoked with a snapshot after
// every state change. Called before any traffic flows; not safe to swap
// mid-session.
func (c *Controller) SetOnChange(fn func(State)) {
	c.onChange = fn
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Submit starts a new session for the given task text. It resets session
// state, then issues exactly one submission request. A rejected precondition
// (empty task, session running) returns an error and leaves state untouched;
// a failed request surfaces through the Errored phase, not the return value.
func (c *Controller) Submit(ctx context.Context, task string) error {
	task = strings.TrimSpace(task)
	if task == "" {
		return ErrEmptyTask
	}

	c.mu.Lock()
	if c.state.Phase == PhaseRunning {
		c.mu.Unlock()
		return ErrSessionRunning
	}
	id := newSubmissionID()
	c.state = Reduce(c.state, inputSubmit{SubmissionID: id, Task: task})
	snapshot := c.state.clone()
	c.mu.Unlock()
	c.notify(snapshot)

	c.metrics.RecordTaskSubmitted()
	c.log.Info("task submitted", slog.String("submission_id", id), slog.String("task", task))

	// The request is issued outside the lock: channel messages for this very
	// submission may arrive and must keep flowing while we wait.
	if err := c.transport.SubmitTask(ctx, task); err != nil {
		c.metrics.RecordSubmissionFailure()
		c.log.Error("task submission failed", slog.String("submission_id", id), slog.String("error", err.Error()))
		c.apply(inputSubmitFailed{SubmissionID: id, Message: err.Error()})
	}
	return nil
}

// Cancel asks the remote engine to stop the running task. Cancellation is
// advisory: local phase does not change until the engine emits its terminal
// event. Outside Running this is a no-op and no token is sent.
func (c *Controller) Cancel() {
	c.mu.Lock()
	running := c.state.Phase == PhaseRunning
	id := c.state.SubmissionID
	c.mu.Unlock()
	if !running {
		return
	}

	if err := c.transport.SendCancellation(); err != nil {
		// The channel is gone; the token cannot be delivered. Callers were
		// told not to assume delivery, so this only surfaces in diagnostics.
		c.log.Debug("cancellation dropped", slog.String("submission_id", id), slog.String("error", err.Error()))
		return
	}
	c.metrics.RecordCancellation()
	c.log.Info("cancellation sent", slog.String("submission_id", id))
}

// OnMessage folds one decoded channel message into session state. Messages
// are applied in delivery order; anything arriving outside Running is stale
// and dropped.
func (c *Controller) OnMessage(msg protocol.Message) {
	switch msg := msg.(type) {
	case protocol.StepEvent:
		c.onStepEvent(msg)
	case protocol.TerminalEvent:
		c.onTerminalEvent(msg)
	default:
		c.log.Warn("unhandled message type", slog.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (c *Controller) onStepEvent(event protocol.StepEvent) {
	c.mu.Lock()
	if c.state.Phase != PhaseRunning {
		c.mu.Unlock()
		c.metrics.RecordStepIgnored()
		c.log.Debug("stale step event ignored", slog.Int("step", event.Step))
		return
	}

	var f *frame.Frame
	if event.Screenshot != "" {
		decoded, err := frame.Decode(event.Screenshot)
		if err != nil {
			// The step still counts; only the frame is lost.
			c.metrics.RecordFrameFailure()
			c.log.Warn("screenshot decode failed", slog.Int("step", event.Step), slog.String("error", err.Error()))
		} else {
			f = decoded
			c.metrics.RecordFrame()
		}
	}

	c.state = Reduce(c.state, inputStep{Event: event, Frame: f})
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.metrics.RecordStep()
	c.notify(snapshot)
}

func (c *Controller) onTerminalEvent(event protocol.TerminalEvent) {
	c.mu.Lock()
	if c.state.Phase != PhaseRunning {
		c.mu.Unlock()
		c.log.Debug("stale terminal event ignored", slog.String("status", event.Status))
		return
	}
	c.state = Reduce(c.state, inputTerminal{Event: event})
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.metrics.RecordTerminal()
	c.log.Info("session ended",
		slog.String("submission_id", snapshot.SubmissionID),
		slog.String("phase", snapshot.Phase.String()),
		slog.String("outcome", snapshot.Outcome),
	)
	c.notify(snapshot)
}

// OnDecodeFailure records an inbound payload that matched no known shape.
// The message is discarded; session state is untouched.
func (c *Controller) OnDecodeFailure(raw []byte, err error) {
	c.metrics.RecordDecodeFailure()
	c.log.Warn("discarding undecodable channel message",
		slog.String("error", err.Error()),
		slog.Int("bytes", len(raw)),
	)
}

// OnClosed records the loss of the streaming channel. There is no automatic
// recovery: a running session stays Running until the client is restarted,
// which is why the closure must be loudly visible.
func (c *Controller) OnClosed(err error) {
	c.mu.Lock()
	phase := c.state.Phase
	c.mu.Unlock()

	if err != nil {
		c.log.Error("streaming channel closed", slog.String("error", err.Error()), slog.String("phase", phase.String()))
	} else {
		c.log.Info("streaming channel closed", slog.String("phase", phase.String()))
	}
	if phase == PhaseRunning {
		c.log.Error("session stuck in running phase: cancellation and further events are impossible until restart")
	}
}

// apply folds one input into session state under the mutex and notifies the
// render trigger with the resulting snapshot.
func (c *Controller) apply(in Input) {
	c.mu.Lock()
	c.state = Reduce(c.state, in)
	snapshot := c.state.clone()
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Controller) notify(snapshot State) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
