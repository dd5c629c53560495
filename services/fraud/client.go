package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
)

const apiPrefix = "/api/v1"

// Client handles fraud-detection API interactions. All requests flow
// through the supplied transport, the authenticated gateway in production,
// so token refresh is invisible to callers here.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// APIError is a non-2xx response from the fraud-detection API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("fraud api: %s - %s", e.Status, e.Body)
	}
	return fmt.Sprintf("fraud api: %s", e.Status)
}

// HealthStatus is the service's root health descriptor.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// SystemConfig holds the platform's tunable settings.
type SystemConfig struct {
	AutoEscalationThreshold float64 `json:"auto_escalation_threshold"`
	DataRetentionDays       int     `json:"data_retention_days"`
}

// SystemConfigUpdate is a partial config update; nil fields are left
// unchanged by the server.
type SystemConfigUpdate struct {
	AutoEscalationThreshold *float64 `json:"auto_escalation_threshold,omitempty"`
	DataRetentionDays       *int     `json:"data_retention_days,omitempty"`
}

// NewClient creates a new fraud-detection API client.
// baseURL is the service root, e.g. "http://localhost:8000". transport may
// be nil for unauthenticated use (health checks only).
func NewClient(baseURL string, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// GetHealth checks service health. The endpoint lives at the service root,
// not under the versioned API prefix, and requires no authentication.
func (c *Client) GetHealth(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var health HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &health, nil
}

// WaitReady polls the health endpoint with backoff until the service
// reports healthy or the context expires. Used at console startup so a
// just-launched stack has time to come up.
func (c *Client) WaitReady(ctx context.Context) error {
	return retry.Do(
		func() error {
			health, err := c.GetHealth(ctx)
			if err != nil {
				return err
			}
			if health.Status != "healthy" && health.Status != "ok" {
				return fmt.Errorf("service not ready: %s", health.Status)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(10),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// GetConfig retrieves the platform configuration.
func (c *Client) GetConfig(ctx context.Context) (*SystemConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/config", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var config SystemConfig
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &config, nil
}

// UpdateConfig applies a partial configuration update and returns the new
// effective config.
func (c *Client) UpdateConfig(ctx context.Context, update SystemConfigUpdate) (*SystemConfig, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+apiPrefix+"/config", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var config SystemConfig
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &config, nil
}

// newAPIError folds the response body into an error for the caller.
func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
