// Package resend is a client for the Resend REST API, covering the
// contacts resource and the transactional send resource.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/converze/newsletter/internal/config"
	"github.com/converze/newsletter/internal/pkg/httpretry"
)

// ErrNotConfigured is returned before any network call when no API
// credential is present.
var ErrNotConfigured = errors.New("email service not configured")

// APIError is a non-2xx response from the Resend API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resend API error (status %d): %s", e.StatusCode, e.Message)
}

// Client is a Resend API client
type Client struct {
	baseURL     string
	apiKey      string
	defaultFrom string
	audienceID  string
	pageSize    int
	httpClient  httpretry.HTTPDoer
}

// NewClient creates a new Resend API client
func NewClient(cfg config.ResendConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		defaultFrom: cfg.FromAddress,
		audienceID:  cfg.AudienceID,
		pageSize:    cfg.ContactPageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// Configured reports whether a send credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Name identifies this send provider.
func (c *Client) Name() string { return "Resend" }

// DefaultPageSize returns the configured contact page size.
func (c *Client) DefaultPageSize() int { return c.pageSize }

// doRequest performs an authenticated request against the Resend API.
// Non-2xx responses are normalized into *APIError with the upstream
// message extracted from either error envelope shape.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(respBody, resp.StatusCode),
		}
	}

	return respBody, nil
}

// extractErrorMessage pulls the human-readable message out of an error
// body. Resend uses both {"message": ...} and {"error": {"message": ...}}.
func extractErrorMessage(body []byte, statusCode int) string {
	var envelope struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return fmt.Sprintf("unexpected status %d", statusCode)
}
