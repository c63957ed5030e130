// Command lookout monitors a task running on a remote browser automation
// engine. It submits the task over a one-shot HTTP call, then follows the
// engine's streamed step events, screenshots, and terminal outcome over a
// persistent websocket channel. Typing a line submits a new task; /stop asks
// the engine to cancel the running one.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/marigold-labs/lookout/pkg/config"
	"github.com/marigold-labs/lookout/pkg/observability"
	"github.com/marigold-labs/lookout/pkg/protocol"
	"github.com/marigold-labs/lookout/pkg/session"
	"github.com/marigold-labs/lookout/pkg/telemetry"
	"github.com/marigold-labs/lookout/pkg/terminal"
	"github.com/marigold-labs/lookout/pkg/transport"
)

// Version information - set via ldflags during build
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lookout: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("lookout", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a lookout config file")
	serverURL := fs.String("url", "", "Base URL of the remote engine (overrides config)")
	task := fs.String("task", "", "Task to submit immediately on startup")
	screenshotDir := fs.String("screenshot-dir", "", "Directory for the latest screenshot frame (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	noColor := fs.Bool("no-color", false, "Disable styled output")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Printf("lookout %s (%s)\n", version, commit)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*serverURL) != "" {
		cfg.ServerURL = strings.TrimSpace(*serverURL)
	}
	if strings.TrimSpace(*screenshotDir) != "" {
		cfg.ScreenshotDir = strings.TrimSpace(*screenshotDir)
	}
	if strings.TrimSpace(*logLevel) != "" {
		cfg.LogLevel = strings.TrimSpace(*logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *noColor {
		terminal.DisableColor()
	}

	level := observability.ParseLevel(cfg.LogLevel)
	log := observability.NewLogger("lookout", level)
	metrics := telemetry.NewMetrics()
	out := terminal.New()

	client, err := transport.NewClient(cfg.ServerURL,
		transport.WithLogger(observability.NewLogger("transport", level)),
	)
	if err != nil {
		return err
	}
	ctrl := session.NewController(client, metrics, observability.NewLogger("session", level))

	r := &renderer{out: out, log: log, screenshotDir: cfg.ScreenshotDir}
	ctrl.SetOnChange(r.observe)

	// The render tap shows each step's action descriptors, which live on the
	// wire event rather than in session state.
	client.SetHandler(&renderTap{next: ctrl, out: out})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		log.Info("session metrics", slog.Any("snapshot", metrics.Snapshot()))
	}()

	out.Info("connected to %s", cfg.ServerURL)

	initial := strings.TrimSpace(*task)
	if initial == "" {
		initial = strings.TrimSpace(cfg.DefaultTask)
	}
	if initial != "" {
		if err := ctrl.Submit(ctx, initial); err != nil {
			return err
		}
	} else {
		out.Info("type a task to submit it, /stop to cancel, /quit to exit")
	}

	g, ctx := errgroup.WithContext(ctx)

	lines := make(chan string)
	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return nil
			}
		}
		return scanner.Err()
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				// Best effort: ask the engine to stop before leaving.
				ctrl.Cancel()
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if done := handleLine(ctx, ctrl, out, metrics, line); done {
					stop()
					return nil
				}
			}
		}
	})

	return g.Wait()
}

// handleLine interprets one operator input line. Returns true on /quit.
func handleLine(ctx context.Context, ctrl *session.Controller, out *terminal.Writer, metrics *telemetry.Metrics, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit" || line == "/q":
		return true
	case line == "/stop":
		ctrl.Cancel()
		return false
	case line == "/status":
		state := ctrl.Snapshot()
		out.Info("phase: %s  steps: %d", state.Phase, len(state.Log))
		return false
	case line == "/metrics":
		snap := metrics.Snapshot()
		out.Info("steps=%d frames=%d decode_failures=%d cancellations=%d",
			snap.StepsReceived, snap.FramesDelivered, snap.DecodeFailures, snap.CancellationsSent)
		return false
	case strings.HasPrefix(line, "/"):
		out.Warn("unknown command %s", line)
		return false
	default:
		switch err := ctrl.Submit(ctx, line); err {
		case nil:
		case session.ErrSessionRunning:
			out.Warn("a task is already running; /stop it first")
		default:
			out.Warn("submit failed: %v", err)
		}
		return false
	}
}

// renderTap forwards channel traffic to the controller and mirrors the
// presentational extras (action descriptors) that session state does not
// retain.
type renderTap struct {
	next transport.Handler
	out  *terminal.Writer
}

func (t *renderTap) OnMessage(msg protocol.Message) {
	t.next.OnMessage(msg)
	if step, ok := msg.(protocol.StepEvent); ok {
		t.out.Actions(step.Actions)
	}
}

func (t *renderTap) OnDecodeFailure(raw []byte, err error) {
	t.next.OnDecodeFailure(raw, err)
}

func (t *renderTap) OnClosed(err error) {
	t.next.OnClosed(err)
	if err != nil {
		t.out.Failed(fmt.Sprintf("connection lost: %v", err))
	} else {
		t.out.Info("connection closed")
	}
}
