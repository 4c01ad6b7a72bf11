// Package statusclient talks to biosync-server on behalf of operator consoles.
package statusclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"biosync/internal/dashboard"
	"biosync/internal/syncstatus"
)

// Ensure Client implements the dashboard backend.
var _ dashboard.Backend = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8081"
	DefaultTimeout = 10 * time.Second
)

const (
	statusPath  = "/api/v1/sync/status"
	triggerPath = "/api/v1/sync/trigger"
)

// Config holds configuration for Client.
type Config struct {
	// BaseURL is the server root (default: http://localhost:8081).
	BaseURL string

	// Timeout bounds every request (default: 10s).
	Timeout time.Duration

	// HTTPClient overrides the underlying client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the sync status API.
type Client struct {
	client  *http.Client
	baseURL string
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		client:  hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// GetLastSyncStatus fetches the current snapshot of every device.
func (c *Client) GetLastSyncStatus(ctx context.Context) (syncstatus.Snapshot, error) {
	var snap syncstatus.Snapshot
	if err := c.do(ctx, http.MethodGet, statusPath, http.StatusOK, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = syncstatus.Snapshot{}
	}
	return snap, nil
}

// TriggerSync asks the server to start a sync run. It returns once the run
// is queued.
func (c *Client) TriggerSync(ctx context.Context) (syncstatus.Acknowledgment, error) {
	var ack syncstatus.Acknowledgment
	if err := c.do(ctx, http.MethodPost, triggerPath, http.StatusAccepted, &ack); err != nil {
		return syncstatus.Acknowledgment{}, err
	}
	if ack.Status != syncstatus.StatusAccepted {
		return syncstatus.Acknowledgment{}, fmt.Errorf("trigger not accepted: status %q", ack.Status)
	}
	return ack, nil
}

func (c *Client) do(ctx context.Context, method, path string, want int, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
