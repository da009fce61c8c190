package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"manifestboard/internal/api"
	"manifestboard/internal/config"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// ErrAPIDisabled indicates no API bind address is configured.
var ErrAPIDisabled = errors.New("daemon api disabled (paths.api_bind is empty)")

// HTTPDoer describes the HTTP client used to reach the daemon.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a running daemon over its loopback HTTP API.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// NewClient builds a client from the configured bind address and token.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, ErrAPIDisabled
	}
	return NewClientWith("http://"+bind, cfg.Paths.APIToken, &http.Client{Timeout: 5 * time.Second}), nil
}

// NewClientWith builds a client against an explicit base URL.
func NewClientWith(baseURL, token string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  doer,
	}
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// View fetches the current board.
func (c *Client) View(ctx context.Context) (api.BoardView, error) {
	var out api.BoardView
	err := c.do(ctx, http.MethodGet, "/api/view", nil, &out)
	return out, err
}

// Collisions fetches the most recent journaled collisions.
func (c *Client) Collisions(ctx context.Context, limit int) (api.CollisionsResponse, error) {
	var out api.CollisionsResponse
	path := "/api/collisions"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Reload asks the daemon to re-read the schedule.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/reload", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build daemon request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if isDaemonUnavailable(err) {
			return ErrDaemonNotRunning
		}
		return fmt.Errorf("daemon request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		if payload.Error == "" {
			payload.Error = resp.Status
		}
		return fmt.Errorf("daemon %s returned %d: %s", path, resp.StatusCode, payload.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
