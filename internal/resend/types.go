package resend

import "time"

// Contact is one newsletter recipient as held by the Resend contact store.
// The store is the sole source of truth; nothing here is cached locally.
type Contact struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Unsubscribed bool      `json:"unsubscribed"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContactList is one page of contacts as returned by the store.
type ContactList struct {
	Data []Contact `json:"data"`
}

// ContactAttrs are the mutable attributes sent on create/update.
type ContactAttrs struct {
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Unsubscribed bool   `json:"unsubscribed"`
}

// ListOptions narrows a contact listing request.
type ListOptions struct {
	AudienceID string
	Limit      int
}

// CreateOutcome tags the result of a contact create attempt so callers
// branch on an explicit value instead of matching upstream error text.
type CreateOutcome int

const (
	// OutcomeCreated means the contact did not exist and was created.
	OutcomeCreated CreateOutcome = iota
	// OutcomeConflict means the store already holds this email.
	OutcomeConflict
	// OutcomeFailed means the create failed for any other reason.
	OutcomeFailed
)

// SendRequest describes one transactional email.
type SendRequest struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendResponse echoes the store's acknowledgement of a send.
type SendResponse struct {
	ID     string    `json:"id"`
	To     []string  `json:"-"`
	SentAt time.Time `json:"-"`
}
