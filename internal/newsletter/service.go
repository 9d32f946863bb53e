// Package newsletter implements the subscription workflow on top of
// the remote contact store.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/converze/newsletter/internal/pkg/logger"
	"github.com/converze/newsletter/internal/resend"
)

// emailPattern is deliberately loose: one @, no whitespace, a dot in
// the domain. The contact store does its own stricter validation.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrInvalidEmail rejects input before any store call is made.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrNotSubscribed is returned by Unsubscribe when the store holds no
// contact for the address.
var ErrNotSubscribed = errors.New("subscriber not found")

// Outcome distinguishes the three successful subscribe paths.
type Outcome int

const (
	// OutcomeSubscribed means a brand-new contact was created.
	OutcomeSubscribed Outcome = iota
	// OutcomeAlreadySubscribed means the contact exists and is active.
	OutcomeAlreadySubscribed
	// OutcomeResubscribed means an unsubscribed contact was reactivated.
	OutcomeResubscribed
)

// Message is the user-facing confirmation for each outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeAlreadySubscribed:
		return "You are already subscribed!"
	case OutcomeResubscribed:
		return "Successfully resubscribed!"
	default:
		return "Successfully subscribed to newsletter!"
	}
}

// ContactStore is the slice of the contact store the workflow needs.
type ContactStore interface {
	GetContact(ctx context.Context, email string) (*resend.Contact, error)
	CreateContact(ctx context.Context, email string, attrs resend.ContactAttrs) (*resend.Contact, resend.CreateOutcome, error)
	UpdateContact(ctx context.Context, email string, attrs resend.ContactAttrs) (*resend.Contact, error)
}

// Status describes one address's subscription state.
type Status struct {
	Subscribed   bool       `json:"subscribed"`
	Status       string     `json:"status,omitempty"`
	SubscribedAt *time.Time `json:"subscribedAt,omitempty"`
}

// Service runs the subscription workflow.
type Service struct {
	store ContactStore
}

// NewService creates a subscription service backed by the given store.
func NewService(store ContactStore) *Service {
	return &Service{store: store}
}

// Subscribe registers an address. It reads the current state first so
// an existing active contact is never mutated, and an unsubscribed one
// is reactivated rather than duplicated.
func (s *Service) Subscribe(ctx context.Context, email, source string) (Outcome, error) {
	email = normalize(email)
	if !emailPattern.MatchString(email) {
		return 0, ErrInvalidEmail
	}

	existing, err := s.store.GetContact(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("checking existing subscriber: %w", err)
	}

	if existing != nil {
		if !existing.Unsubscribed {
			return OutcomeAlreadySubscribed, nil
		}
		if _, err := s.store.UpdateContact(ctx, email, resend.ContactAttrs{Unsubscribed: false}); err != nil {
			return 0, fmt.Errorf("reactivating subscriber: %w", err)
		}
		logger.Info("subscriber reactivated", "email", email, "source", source)
		return OutcomeResubscribed, nil
	}

	_, outcome, err := s.store.CreateContact(ctx, email, resend.ContactAttrs{Unsubscribed: false})
	if err != nil {
		return 0, fmt.Errorf("creating subscriber: %w", err)
	}
	// A conflict here means someone else created the contact between
	// our read and the create. Treat it as already subscribed.
	if outcome == resend.OutcomeConflict {
		return OutcomeAlreadySubscribed, nil
	}

	logger.Info("subscriber created", "email", email, "source", source)
	return OutcomeSubscribed, nil
}

// CheckStatus reports whether an address is currently subscribed.
func (s *Service) CheckStatus(ctx context.Context, email string) (*Status, error) {
	email = normalize(email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	contact, err := s.store.GetContact(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("fetching subscriber: %w", err)
	}
	if contact == nil {
		return &Status{Subscribed: false}, nil
	}

	status := "active"
	if contact.Unsubscribed {
		status = "unsubscribed"
	}
	result := &Status{
		Subscribed: !contact.Unsubscribed,
		Status:     status,
	}
	if !contact.CreatedAt.IsZero() {
		createdAt := contact.CreatedAt
		result.SubscribedAt = &createdAt
	}
	return result, nil
}

// Unsubscribe marks an existing contact as unsubscribed. Unknown
// addresses return ErrNotSubscribed; repeating the call on an already
// unsubscribed contact is a no-op success.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	email = normalize(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	contact, err := s.store.GetContact(ctx, email)
	if err != nil {
		return fmt.Errorf("fetching subscriber: %w", err)
	}
	if contact == nil {
		return ErrNotSubscribed
	}

	if _, err := s.store.UpdateContact(ctx, email, resend.ContactAttrs{Unsubscribed: true}); err != nil {
		return fmt.Errorf("unsubscribing: %w", err)
	}

	logger.Info("subscriber unsubscribed", "email", email)
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
