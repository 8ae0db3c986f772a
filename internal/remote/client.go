// Package remote implements the HTTP client for the hospital-monitoring
// backend's alert endpoints.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/wardsync/internal/alert"
)

const httpTimeout = 30 * time.Second

// Client talks to the backend REST API. The backend is poll-only: there is
// no push channel, wardsync fetches the full active set each cycle.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// New creates a backend client for the given base endpoint. token is sent
// as a bearer token when non-empty. Outbound requests are traced via
// otelhttp so fetch latency shows up in the same traces as the API server.
func New(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ActiveAlerts fetches GET /alerts/active and normalizes the response. The
// backend answers {"alerts":[...]} or a bare array depending on version;
// both are handled. A transport error or non-2xx status is returned to the
// caller so the sync engine can keep its last good snapshot.
func (c *Client) ActiveAlerts(ctx context.Context) ([]alert.Alert, error) {
	u, err := c.buildURL("/alerts/active")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch active alerts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(truncate(body, 512)))
	}

	return alert.DecodePayload(body), nil
}

// Acknowledge posts POST /alerts/{id}/acknowledge. The response body is
// ignored beyond success or failure.
func (c *Client) Acknowledge(ctx context.Context, id string) error {
	u, err := c.buildURL("/alerts/" + url.PathEscape(id) + "/acknowledge")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	return c.expectSuccess(req, "acknowledge")
}

// Dismiss issues DELETE /alerts/{id}.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	u, err := c.buildURL("/alerts/" + url.PathEscape(id))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	return c.expectSuccess(req, "dismiss")
}

func (c *Client) buildURL(path string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path
	return u.String(), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) expectSuccess(req *http.Request, op string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: backend returned %d: %s", op, resp.StatusCode, string(body))
	}
	return nil
}

func truncate(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}
	return b[:limit]
}
