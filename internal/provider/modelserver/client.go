package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for a model server client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Model   string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8500",
		Timeout: 10 * time.Second,
	}
}

// Client talks to an HTTP model server. Requests are never retried: a
// failed model call surfaces to the caller as-is.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new model server client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Detect calls POST /detect
func (c *Client) Detect(ctx context.Context, req DetectRequest) (*DetectResponse, error) {
	var resp DetectResponse
	if err := c.doRequest(ctx, http.MethodPost, "/detect", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Infer calls POST /infer
func (c *Client) Infer(ctx context.Context, req InferRequest) (*InferResponse, error) {
	if req.Model == "" {
		req.Model = c.config.Model
	}

	var resp InferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/infer", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelServerUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrModelServerUnavailable, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}
