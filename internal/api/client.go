package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrCycleInProgress reports that the daemon declined a manual trigger
// because a cycle already holds the lease.
var ErrCycleInProgress = errors.New("cycle already in progress")

// Client talks to the daemon's HTTP control API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a control API client for the given bind address.
func NewClient(baseURL, token string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 15 * time.Minute},
	}
}

// Run triggers one pipeline cycle. An empty worker list uses the daemon's
// configured pool.
func (c *Client) Run(ctx context.Context, workers []string) (CycleResult, error) {
	var result CycleResult
	status, err := c.do(ctx, http.MethodPost, "/api/run", RunRequest{Workers: workers}, &result)
	if err != nil {
		return result, err
	}
	if status == http.StatusConflict {
		return result, ErrCycleInProgress
	}
	return result, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var status DaemonStatus
	_, err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Rows lists actionable rows, optionally filtered by assigned worker.
func (c *Client) Rows(ctx context.Context, worker string) ([]Row, error) {
	path := "/api/rows"
	if worker = strings.TrimSpace(worker); worker != "" {
		path += "?worker=" + url.QueryEscape(worker)
	}
	var payload RowListResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Rows, nil
}

// Healthy reports whether the daemon answers its health probe.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err == nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	// A conflict still carries a decodable cycle result; Run maps it to
	// ErrCycleInProgress.
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusConflict {
		var apiErr ErrorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return resp.StatusCode, fmt.Errorf("daemon error: %s", apiErr.Error)
		}
		return resp.StatusCode, fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
