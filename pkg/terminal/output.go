// Package terminal renders the monitoring session for the operator: styled
// step lines, action summaries, the path of the latest screenshot frame, and
// the final outcome banner. No TUI framework - just print and scroll.
package terminal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/marigold-labs/lookout/pkg/frame"
)

// Writer provides styled terminal output for session events.
type Writer struct {
	out io.Writer
	mu  sync.Mutex

	stepStyle    lipgloss.Style
	actionStyle  lipgloss.Style
	dimStyle     lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	infoStyle    lipgloss.Style
	boldStyle    lipgloss.Style
}

// New creates a Writer on stdout.
func New() *Writer {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput creates a Writer with a custom destination.
func NewWithOutput(out io.Writer) *Writer {
	// lipgloss reads the color profile lazily; resolving it up front keeps
	// adaptive colors stable across the session.
	_ = termenv.ColorProfile()

	return &Writer{
		out: out,

		stepStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}).
			Bold(true),

		actionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#AAAAAA"}),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true),

		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}).
			Bold(true),

		infoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),

		boldStyle: lipgloss.NewStyle().Bold(true),
	}
}

// DisableColor forces plain output regardless of terminal capabilities.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Step prints one step line as recorded in the session log.
func (w *Writer) Step(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.stepStyle.Render(line))
}

// Actions prints a compact summary of the step's action descriptors. The
// descriptors are opaque to the client; keys are shown sorted with their
// values JSON-encoded.
func (w *Writer) Actions(actions []map[string]any) {
	if len(actions) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, action := range actions {
		fmt.Fprintln(w.out, w.actionStyle.Render("  → "+summarizeAction(action)))
	}
}

// Frame announces the most recent screenshot and where it was written.
func (w *Writer) Frame(path string, f *frame.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	size := ""
	if f != nil && f.Width > 0 {
		size = fmt.Sprintf(" (%dx%d)", f.Width, f.Height)
	}
	fmt.Fprintln(w.out, w.dimStyle.Render("  screenshot"+size+": "+path))
}

// Running announces a new submission.
func (w *Writer) Running(task string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.boldStyle.Render("▶ ")+w.infoStyle.Render(task))
}

// Done prints the success banner with the final result text.
func (w *Writer) Done(result string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.successStyle.Render("✓ done: ")+result)
}

// Failed prints the failure banner with the error message.
func (w *Writer) Failed(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.errorStyle.Render("✗ "+message))
}

// Info prints an informational message.
func (w *Writer) Info(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.infoStyle.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning message.
func (w *Writer) Warn(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.dimStyle.Render("warning: "+fmt.Sprintf(format, args...)))
}

func summarizeAction(action map[string]any) string {
	if len(action) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(action))
	for k := range action {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := json.Marshal(action[k])
		if err != nil {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, " ")
}
