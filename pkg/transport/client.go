// Package transport maintains the two paths to the remote automation engine:
// the long-lived websocket channel carrying step/terminal events and the
// cancellation token, and the independent one-shot HTTP call that submits a
// task. The channel is opened once per client; there is no reconnect.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/marigold-labs/lookout/pkg/observability"
	"github.com/marigold-labs/lookout/pkg/protocol"
)

const (
	// taskPath is the one-shot submission endpoint.
	taskPath = "/run-task"
	// streamPath is the persistent channel endpoint.
	streamPath = "/ws"

	defaultHTTPTimeout  = 15 * time.Second
	defaultWriteTimeout = 5 * time.Second

	// maxFrameBytes bounds one inbound message. Screenshots dominate payload
	// size; a full-page capture encodes to a few MB of base64.
	maxFrameBytes = 32 << 20

	maxErrorBodyBytes int64 = 64 << 10
)

// ErrChannelClosed reports an operation on the streaming channel when it is
// not open. Cancellation callers treat this as a dropped token.
var ErrChannelClosed = errors.New("streaming channel is not open")

// Handler receives channel traffic. Callbacks are invoked sequentially from
// the delivery loop, in arrival order; OnClosed is called exactly once per
// open, last.
type Handler interface {
	OnMessage(msg protocol.Message)
	OnDecodeFailure(raw []byte, err error)
	OnClosed(err error)
}

// Client talks to one remote engine instance.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	handler    Handler
	log        *observability.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for the submission call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger replaces the transport logger.
func WithLogger(log *observability.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a transport client for the engine at baseURL. A Handler
// must be attached with SetHandler before Open; construction is split this
// way because the session controller consuming the channel also needs the
// client for its outbound calls.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", u.Scheme)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        observability.NewLogger("transport", slog.LevelInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetHandler attaches the delivery handler. Must be called before Open.
func (c *Client) SetHandler(handler Handler) {
	c.handler = handler
}

// Open establishes the persistent channel and starts the delivery loop.
// Calling Open while the channel is already open is a no-op. There is no
// automatic reconnect after close: a new Open is the caller's decision.
func (c *Client) Open(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("transport handler is required before Open")
	}
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	endpoint := c.wsURL()
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, resp, err := websocket.Dial(dialCtx, endpoint, nil)
	cancel()
	if err != nil {
		return formatDialError(resp, err)
	}
	conn.SetReadLimit(maxFrameBytes)

	c.mu.Lock()
	if c.conn != nil {
		// Lost the race against a concurrent Open; keep the first channel.
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "duplicate connection")
		return nil
	}
	c.conn = conn
	c.closing = false
	c.mu.Unlock()

	c.log.Info("streaming channel open", slog.String("endpoint", endpoint))
	go c.deliver(ctx, conn)
	return nil
}

// Close shuts the channel down. Safe to call when already closed.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.closing = conn != nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client shutdown")
}

// SubmitTask issues the one-shot submission request. Any 2xx response is
// success; the body is not interpreted beyond error reporting. The call is
// independent of the streaming channel and works with the channel closed.
func (c *Client) SubmitTask(ctx context.Context, task string) error {
	body, err := json.Marshal(protocol.TaskRequest{Task: task})
	if err != nil {
		return fmt.Errorf("failed to encode task request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(taskPath), strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("task submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(readBodyLimited(resp.Body, maxErrorBodyBytes)))
		if detail == "" {
			detail = resp.Status
		}
		return fmt.Errorf("task submission failed (%s): %s", resp.Status, detail)
	}
	return nil
}

// SendCancellation writes the fixed cancellation token on the open channel.
// No acknowledgment exists; returns ErrChannelClosed when there is no channel
// to write to.
func (c *Client) SendCancellation() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrChannelClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(protocol.CancelToken)); err != nil {
		return fmt.Errorf("failed to send cancellation token: %w", err)
	}
	return nil
}

// deliver reads the channel until it dies, decoding each payload and handing
// it to the handler. Runs in its own goroutine; the handler callbacks are the
// single sequence through which session state is mutated.
func (c *Client) deliver(ctx context.Context, conn *websocket.Conn) {
	var closeErr error
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch {
			case c.isClosing():
				// Local shutdown, not a failure.
			case ctx.Err() != nil:
				// The caller's context ended; shutdown, not a failure.
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
			case websocket.CloseStatus(err) == websocket.StatusGoingAway:
			default:
				closeErr = err
			}
			break
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.handler.OnDecodeFailure(data, err)
			continue
		}
		c.handler.OnMessage(msg)
	}

	c.mu.Lock()
	c.conn = nil
	c.closing = false
	c.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "delivery loop done")

	if closeErr != nil {
		c.log.Error("streaming channel failed", slog.String("error", closeErr.Error()))
	}
	c.handler.OnClosed(closeErr)
}

func (c *Client) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Client) apiURL(p string) string {
	u := *c.baseURL
	u.Path = path.Join(strings.TrimSuffix(c.baseURL.Path, "/"), p)
	return u.String()
}

func (c *Client) wsURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = path.Join(strings.TrimSuffix(c.baseURL.Path, "/"), streamPath)
	return u.String()
}

func readBodyLimited(r io.Reader, maxBytes int64) []byte {
	if r == nil || maxBytes <= 0 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(r, maxBytes))
	return data
}

func formatDialError(resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("websocket connection failed: %w", err)
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}
	detail := strings.TrimSpace(string(readBodyLimited(resp.Body, maxErrorBodyBytes)))
	if detail != "" {
		return fmt.Errorf("websocket connection failed (%s): %s", resp.Status, detail)
	}
	return fmt.Errorf("websocket connection failed (%s): %v", resp.Status, err)
}
