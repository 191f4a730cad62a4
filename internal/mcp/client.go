package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mooagent/mooagent/internal/httpkit"
)

// DefaultTimeout bounds each protocol call end to end.
const DefaultTimeout = 30 * time.Second

// Client talks to one tool server. Safe for concurrent use; the tool
// catalog is cached after the first successful ListTools.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	tools []ToolDefinition // nil until first successful list
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at baseURL (scheme://host[:port],
// no trailing slash required).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "mcp", "server", c.baseURL)
	return c
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// post executes one protocol call and decodes the envelope. A fresh
// connection is used for every call so a wedged server connection
// cannot poison later calls.
func (c *Client) post(ctx context.Context, op string, params any) (*envelope, error) {
	url := c.baseURL + "/" + op

	body, err := json.Marshal(request{Method: op, Params: params})
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: fmt.Errorf("marshal request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := httpkit.NewClient(
		httpkit.WithTimeout(c.timeout),
		httpkit.WithDisableKeepAlives(),
	)

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, &TransportError{Op: op, URL: url, Timeout: true, Err: err}
		}
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := httpkit.ReadErrorBody(resp.Body, 4096)
		return nil, &TransportError{
			Op:  op,
			URL: url,
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(msg)),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Debug("protocol call", "op", op, "duration", time.Since(start))

	if env.Error != "" {
		return nil, &RemoteError{Op: op, Message: env.Error}
	}
	return &env, nil
}

// ListTools returns the server's tool catalog. The first successful
// response is cached; later calls return the cached list without a
// network round trip.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	c.mu.Lock()
	if c.tools != nil {
		cached := make([]ToolDefinition, len(c.tools))
		copy(cached, c.tools)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	env, err := c.post(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if env.Tools == nil {
		return nil, &TransportError{
			Op:  "tools/list",
			URL: c.baseURL + "/tools/list",
			Err: errors.New("response missing tools field"),
		}
	}

	c.mu.Lock()
	c.tools = env.Tools
	c.mu.Unlock()

	c.logger.Info("tool catalog loaded", "count", len(env.Tools))

	out := make([]ToolDefinition, len(env.Tools))
	copy(out, env.Tools)
	return out, nil
}

// CallTool invokes a named tool and renders the result as text for the
// agent's observation. Nested objects are pretty-printed; scalars are
// rendered bare.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	env, err := c.post(ctx, "tools/call", callParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	if env.Result == nil {
		return "", &TransportError{
			Op:  "tools/call",
			URL: c.baseURL + "/tools/call",
			Err: errors.New("response missing result field"),
		}
	}
	return renderResult(env.Result), nil
}

// ListResources returns the server's resource catalog.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	env, err := c.post(ctx, "resources/list", nil)
	if err != nil {
		return nil, err
	}
	if env.Resources == nil {
		return nil, &TransportError{
			Op:  "resources/list",
			URL: c.baseURL + "/resources/list",
			Err: errors.New("response missing resources field"),
		}
	}
	return env.Resources, nil
}

// ReadResource fetches one resource by URI and returns its text
// content. Servers respond with either a contents array or a bare
// result value; both are accepted.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	env, err := c.post(ctx, "resources/read", readParams{URI: uri})
	if err != nil {
		return "", err
	}
	if len(env.Contents) > 0 {
		return env.Contents[0].Text, nil
	}
	if env.Result != nil {
		return renderResult(env.Result), nil
	}
	return "", &TransportError{
		Op:  "resources/read",
		URL: c.baseURL + "/resources/read",
		Err: errors.New("response missing contents field"),
	}
}

// renderResult converts a raw tool result to observation text. Servers
// sometimes wrap the payload in an inner "result" field; unwrap one
// level of that before formatting.
func renderResult(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	if obj, ok := v.(map[string]any); ok {
		if inner, ok := obj["result"]; ok && len(obj) == 1 {
			v = inner
		}
	}

	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case map[string]any, []any:
		pretty, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(pretty)
	default:
		return fmt.Sprintf("%v", val)
	}
}
