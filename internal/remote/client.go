package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "Loom/0.1.0"

// Sentinel errors for failure classification at call sites.
var (
	// ErrRemote marks HTTP-level and transport failures.
	ErrRemote = errors.New("remote call failed")
	// ErrFunction marks calls the endpoint accepted but reported as failed.
	ErrFunction = errors.New("remote function error")
	// ErrDecode marks non-JSON or malformed envelope responses.
	ErrDecode = errors.New("remote response decode failed")
)

// Params carries the function parameters merged into the request envelope.
type Params map[string]any

// Caller is the narrow invocation surface consumed by the row store, the
// step executor, and the action log.
type Caller interface {
	Call(ctx context.Context, function string, params Params) (json.RawMessage, error)
}

// Client invokes remote functions over the HTTP envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Caller = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a remote client for the configured endpoint.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

// Call invokes the named function and returns the decoded result payload.
func (c *Client) Call(ctx context.Context, function string, params Params) (json.RawMessage, error) {
	function = strings.TrimSpace(function)
	if function == "" {
		return nil, errors.New("remote function name required")
	}

	body := make(map[string]any, len(params)+1)
	for key, value := range params {
		body[key] = value
	}
	body["function"] = function

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", function, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", function, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRemote, function, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrRemote, function, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrRemote, function, resp.StatusCode, trimForError(payload))
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrDecode, function, trimForError(payload))
	}
	if !env.Success {
		message := strings.TrimSpace(env.Error)
		if message == "" {
			message = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrFunction, function, message)
	}
	if len(env.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Result, nil
}

func trimForError(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > 256 {
		text = text[:256] + "..."
	}
	return text
}
