package resend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CreateContact attempts to create a contact and tags the outcome.
// Conflict is detected primarily by HTTP 409; matching on "already
// exists"/"duplicate" in the message is kept as a compatibility shim for
// stores that signal the condition only in text.
func (c *Client) CreateContact(ctx context.Context, email string, attrs ContactAttrs) (*Contact, CreateOutcome, error) {
	payload := struct {
		Email string `json:"email"`
		ContactAttrs
	}{Email: email, ContactAttrs: attrs}

	body, err := c.doRequest(ctx, http.MethodPost, "/contacts", payload)
	if err != nil {
		if isConflict(err) {
			return nil, OutcomeConflict, nil
		}
		return nil, OutcomeFailed, fmt.Errorf("creating contact: %w", err)
	}

	var contact Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return nil, OutcomeFailed, fmt.Errorf("parsing contact: %w", err)
	}
	return &contact, OutcomeCreated, nil
}

// UpdateContact patches an existing contact addressed by email.
func (c *Client) UpdateContact(ctx context.Context, email string, attrs ContactAttrs) (*Contact, error) {
	body, err := c.doRequest(ctx, http.MethodPatch, "/contacts/"+url.PathEscape(email), attrs)
	if err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	var contact Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return nil, fmt.Errorf("parsing contact: %w", err)
	}
	return &contact, nil
}

// CreateOrUpdateContact ensures a contact exists with the given
// attributes. The store has no native upsert, so this creates and falls
// back to an update-in-place when the create reports a conflict. The
// fallback also absorbs the race of two concurrent creates for the same
// email.
func (c *Client) CreateOrUpdateContact(ctx context.Context, email string, attrs ContactAttrs) (*Contact, error) {
	contact, outcome, err := c.CreateContact(ctx, email, attrs)
	switch outcome {
	case OutcomeCreated:
		return contact, nil
	case OutcomeConflict:
		return c.UpdateContact(ctx, email, attrs)
	default:
		return nil, err
	}
}

// GetContact fetches one contact by email. A missing contact is a
// normal outcome and returns (nil, nil); any other failure propagates.
func (c *Client) GetContact(ctx context.Context, email string) (*Contact, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/contacts/"+url.PathEscape(email), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching contact: %w", err)
	}

	var contact Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return nil, fmt.Errorf("parsing contact: %w", err)
	}
	return &contact, nil
}

// ListContacts fetches one page of contacts. It does not filter by
// subscription status; callers decide what an "active" contact is.
func (c *Client) ListContacts(ctx context.Context, opts ListOptions) (*ContactList, error) {
	params := url.Values{}
	if opts.AudienceID == "" {
		opts.AudienceID = c.audienceID
	}
	if opts.AudienceID != "" {
		params.Set("audience_id", opts.AudienceID)
	}
	if opts.Limit == 0 {
		opts.Limit = c.pageSize
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/contacts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}

	var list ContactList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parsing contact list: %w", err)
	}
	return &list, nil
}

// RemoveContact deletes a contact from the store.
func (c *Client) RemoveContact(ctx context.Context, email string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, "/contacts/"+url.PathEscape(email), nil); err != nil {
		return fmt.Errorf("removing contact: %w", err)
	}
	return nil
}

func isConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}

func isNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound ||
		strings.Contains(strings.ToLower(apiErr.Message), "not found")
}
