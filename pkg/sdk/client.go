package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps calls to the publishing backend
type Client struct {
	baseURL    string
	cronSecret string
	httpClient *http.Client
}

func NewClient(baseURL, cronSecret string) *Client {
	return &Client{
		baseURL:    baseURL,
		cronSecret: cronSecret,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Publish publishes or schedules one content item
func (c *Client) Publish(ctx context.Context, req *PublishRequest) (*PublishResponse, error) {
	var out ApiResponse[PublishResponse]
	if err := c.doJSON(ctx, http.MethodPost, "/api/publish", req, &out); err != nil {
		return nil, err
	}

	if out.Status == StatusError {
		return nil, fmt.Errorf("publish failed: %s", out.Message)
	}
	return &out.Data, nil
}

// ProcessScheduled triggers one scheduled-post processing run
func (c *Client) ProcessScheduled(ctx context.Context) (*ScheduledRunResponse, error) {
	var out ApiResponse[ScheduledRunResponse]
	if err := c.doJSON(ctx, http.MethodPost, "/api/scheduled/process", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ProcessComments triggers one comment automation run
func (c *Client) ProcessComments(ctx context.Context) (*AutomationRunResponse, error) {
	var out ApiResponse[AutomationRunResponse]
	if err := c.doJSON(ctx, http.MethodPost, "/api/automation/comments/process", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// RefreshAll triggers one token refresh sweep for a provider
func (c *Client) RefreshAll(ctx context.Context, provider string) (*RefreshRunResponse, error) {
	path := fmt.Sprintf("/api/integrations/%s/refresh-all", provider)

	var out ApiResponse[RefreshRunResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil)
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cronSecret != "" {
		req.Header.Set("Authorization", "Bearer "+c.cronSecret)
	}

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// On error, read body and return error
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend '%s %s' failed: %d: %s", method, path, resp.StatusCode, string(b))
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}
