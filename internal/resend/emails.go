package resend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SendEmail sends exactly one logical message through the transactional
// send resource. The from address defaults to the configured sender.
// The missing-credential check happens before any network I/O.
func (c *Client) SendEmail(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if req.From == "" {
		req.From = c.defaultFrom
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/emails", req)
	if err != nil {
		return nil, fmt.Errorf("sending email: %w", err)
	}

	var resp SendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing send response: %w", err)
	}
	resp.To = req.To
	resp.SentAt = time.Now()
	return &resp, nil
}

// Send delivers one personalized email to a single recipient. It adapts
// the client to the broadcast fan-out's provider interface.
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	resp, err := c.SendEmail(ctx, SendRequest{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}
