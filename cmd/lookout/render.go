package main

import (
	"log/slog"

	"github.com/marigold-labs/lookout/pkg/frame"
	"github.com/marigold-labs/lookout/pkg/observability"
	"github.com/marigold-labs/lookout/pkg/session"
	"github.com/marigold-labs/lookout/pkg/terminal"
)

// renderer turns session state snapshots into operator output. It prints the
// delta between successive snapshots: the controller's OnChange delivers them
// in mutation order, one at a time.
type renderer struct {
	out           *terminal.Writer
	log           *observability.Logger
	screenshotDir string

	prevPhase  session.Phase
	prevLogLen int
	prevFrame  *frame.Frame
}

func (r *renderer) observe(state session.State) {
	if state.Phase == session.PhaseRunning && r.prevPhase != session.PhaseRunning {
		r.out.Running(state.Task)
		// A new submission starts a fresh log.
		r.prevLogLen = 0
	}

	if len(state.Log) < r.prevLogLen {
		r.prevLogLen = 0
	}
	for _, line := range state.Log[r.prevLogLen:] {
		r.out.Step(line)
	}
	r.prevLogLen = len(state.Log)

	if state.LatestFrame != nil && state.LatestFrame != r.prevFrame {
		r.renderFrame(state.LatestFrame)
		r.prevFrame = state.LatestFrame
	}

	if state.Phase != r.prevPhase && state.Phase.Terminal() {
		if state.Phase == session.PhaseDone {
			r.out.Done(state.Outcome)
		} else {
			r.out.Failed(state.Outcome)
		}
	}
	r.prevPhase = state.Phase
}

// renderFrame persists the most recent screenshot and points the operator at
// it. Only the newest frame is kept on disk.
func (r *renderer) renderFrame(f *frame.Frame) {
	path, err := f.Save(r.screenshotDir)
	if err != nil {
		r.log.Warn("failed to save screenshot frame", slog.String("error", err.Error()))
		return
	}
	r.out.Frame(path, f)
}
