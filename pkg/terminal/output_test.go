package terminal

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func newPlainWriter(buf *bytes.Buffer) *Writer {
	// Ascii profile keeps assertions free of escape sequences.
	lipgloss.SetColorProfile(termenv.Ascii)
	return NewWithOutput(buf)
}

func TestStepAndBanners(t *testing.T) {
	var buf bytes.Buffer
	w := newPlainWriter(&buf)

	w.Running("find flights")
	w.Step("Step 1: searching")
	w.Done("OK")
	w.Failed("Error: boom")

	out := buf.String()
	assert.Contains(t, out, "find flights")
	assert.Contains(t, out, "Step 1: searching")
	assert.Contains(t, out, "done: OK")
	assert.Contains(t, out, "Error: boom")
}

func TestActionsSummary(t *testing.T) {
	var buf bytes.Buffer
	w := newPlainWriter(&buf)

	w.Actions([]map[string]any{
		{"go_to_url": map[string]any{"url": "https://example.com"}},
		{"zoom": 2, "click_element": map[string]any{"index": float64(3)}},
	})

	out := buf.String()
	assert.Contains(t, out, `go_to_url={"url":"https://example.com"}`)
	// Keys within one descriptor are sorted.
	assert.Contains(t, out, `click_element={"index":3} zoom=2`)
}

func TestActionsEmptyPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	w := newPlainWriter(&buf)

	w.Actions(nil)
	w.Actions([]map[string]any{})

	assert.Empty(t, buf.String())
}

func TestFrameLine(t *testing.T) {
	var buf bytes.Buffer
	w := newPlainWriter(&buf)

	w.Frame("/tmp/frames/latest.png", nil)
	assert.Contains(t, buf.String(), "screenshot: /tmp/frames/latest.png")
}
