// Package broadcast fans a composed campaign out to every active
// subscriber through a send provider.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/converze/newsletter/internal/content"
	"github.com/converze/newsletter/internal/pkg/logger"
	"github.com/converze/newsletter/internal/resend"
	"github.com/converze/newsletter/internal/template"
)

// Campaign types accepted by Broadcast.
const (
	TypeBlogPost = "blog-post"
	TypeCustom   = "custom"
)

var (
	// ErrInvalidCampaign means the request names no valid campaign:
	// unknown type, or required fields missing for the type.
	ErrInvalidCampaign = errors.New("invalid email type or missing required fields")

	// ErrPostNotFound means a blog-post campaign referenced an unknown
	// post ID.
	ErrPostNotFound = errors.New("post not found")

	// ErrNoActiveSubscribers means the contact store holds nobody to
	// send to. No send is attempted.
	ErrNoActiveSubscribers = errors.New("no active subscribers found")

	// ErrNotConfigured means the send provider has no credential.
	ErrNotConfigured = errors.New("email service not configured")
)

// Sender is a transactional email provider. Implementations deliver
// exactly one message per call.
type Sender interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, to, subject, html string) (messageID string, err error)
}

// ContactLister reads the recipient set from the contact store.
type ContactLister interface {
	ListContacts(ctx context.Context, opts resend.ListOptions) (*resend.ContactList, error)
}

// PostFetcher loads blog posts for blog-post campaigns.
type PostFetcher interface {
	FetchPostByID(ctx context.Context, postID string) (*content.Post, error)
}

// Recorder persists a broadcast summary after the fan-out completes.
// Recording is best effort; failures are logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}

// Request describes one campaign to broadcast.
type Request struct {
	Type    string `json:"type"`
	PostID  string `json:"postId,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
	CTAText string `json:"ctaText,omitempty"`
	CTAURL  string `json:"ctaUrl,omitempty"`
}

// SendResult is the delivery outcome for one recipient.
type SendResult struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendError identifies one recipient whose delivery failed.
type SendError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// Summary aggregates a completed fan-out. Results keeps the contact
// store's listing order regardless of send completion order; Errors
// repeats just the failed entries for callers that only care about
// what went wrong.
type Summary struct {
	BroadcastID string       `json:"broadcastId"`
	Sent        int          `json:"sent"`
	Failed      int          `json:"failed"`
	Total       int          `json:"total"`
	Subject     string       `json:"-"`
	Results     []SendResult `json:"results"`
	Errors      []SendError  `json:"errors,omitempty"`
}

// HistoryEntry is the persisted record of one broadcast.
type HistoryEntry struct {
	BroadcastID  string
	CampaignType string
	Subject      string
	Sent         int
	Failed       int
	Total        int
	SentAt       time.Time
}

// ServiceStatus reports whether broadcasting is possible right now.
type ServiceStatus struct {
	Configured        bool   `json:"emailServiceConfigured"`
	Service           string `json:"service"`
	ActiveSubscribers int    `json:"activeSubscribers"`
}

// Service runs broadcast campaigns.
type Service struct {
	sender      Sender
	contacts    ContactLister
	posts       PostFetcher
	composer    *template.Composer
	recorder    Recorder
	batchSize   int
	sendTimeout time.Duration
}

// NewService wires a broadcast service. batchSize caps how many sends
// are in flight at once; sendTimeout bounds each individual delivery.
func NewService(sender Sender, contacts ContactLister, posts PostFetcher, composer *template.Composer, batchSize int, sendTimeout time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = 50
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Service{
		sender:      sender,
		contacts:    contacts,
		posts:       posts,
		composer:    composer,
		batchSize:   batchSize,
		sendTimeout: sendTimeout,
	}
}

// SetRecorder attaches an optional history recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Broadcast resolves the campaign, loads the recipient set and fans
// the send out. One failed recipient never aborts the rest; the caller
// gets a per-recipient breakdown either way.
func (s *Service) Broadcast(ctx context.Context, req Request) (*Summary, error) {
	if !s.sender.Configured() {
		return nil, ErrNotConfigured
	}

	email, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	recipients, err := s.activeRecipients(ctx)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoActiveSubscribers
	}

	broadcastID := uuid.NewString()

	logger.Info("broadcast starting",
		"broadcast_id", broadcastID,
		"type", req.Type,
		"subject", email.Subject,
		"recipients", len(recipients),
		"provider", s.sender.Name())

	summary := s.fanOut(ctx, email, recipients)
	summary.BroadcastID = broadcastID
	summary.Subject = email.Subject

	logger.Info("broadcast finished",
		"broadcast_id", broadcastID,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"total", summary.Total)

	if s.recorder != nil {
		entry := HistoryEntry{
			BroadcastID:  broadcastID,
			CampaignType: req.Type,
			Subject:      email.Subject,
			Sent:         summary.Sent,
			Failed:       summary.Failed,
			Total:        summary.Total,
			SentAt:       time.Now().UTC(),
		}
		if err := s.recorder.Record(ctx, entry); err != nil {
			logger.Warn("recording broadcast history failed", "error", err.Error())
		}
	}

	return summary, nil
}

// Status reports provider readiness and the current audience size.
func (s *Service) Status(ctx context.Context) (*ServiceStatus, error) {
	status := &ServiceStatus{
		Configured: s.sender.Configured(),
		Service:    "Not configured",
	}
	if status.Configured {
		status.Service = s.sender.Name()
	}

	recipients, err := s.activeRecipients(ctx)
	if err != nil {
		return nil, err
	}
	status.ActiveSubscribers = len(recipients)
	return status, nil
}

// resolve turns a campaign request into a composed email body.
func (s *Service) resolve(ctx context.Context, req Request) (*template.Email, error) {
	switch {
	case req.Type == TypeBlogPost && req.PostID != "":
		post, err := s.posts.FetchPostByID(ctx, req.PostID)
		if err != nil {
			return nil, fmt.Errorf("fetching post: %w", err)
		}
		if post == nil {
			return nil, ErrPostNotFound
		}
		return s.composer.ComposeBlogPost(post)

	case req.Type == TypeCustom && req.Subject != "" && req.Message != "":
		return s.composer.ComposeCustom(req.Subject, req.Message, req.CTAText, req.CTAURL)

	default:
		return nil, ErrInvalidCampaign
	}
}

// activeRecipients lists contacts and drops the unsubscribed ones.
func (s *Service) activeRecipients(ctx context.Context) ([]string, error) {
	list, err := s.contacts.ListContacts(ctx, resend.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}

	recipients := make([]string, 0, len(list.Data))
	for _, contact := range list.Data {
		if !contact.Unsubscribed {
			recipients = append(recipients, contact.Email)
		}
	}
	return recipients, nil
}

// fanOut delivers the campaign with at most batchSize sends in flight.
// Results are written by index so the output order matches the input.
func (s *Service) fanOut(ctx context.Context, email *template.Email, recipients []string) *Summary {
	summary := &Summary{
		Total:   len(recipients),
		Results: make([]SendResult, len(recipients)),
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.batchSize)
		mu  sync.Mutex
	)

	for i, recipient := range recipients {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, to string) {
			defer wg.Done()
			defer func() { <-sem }()

			sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
			defer cancel()

			messageID, err := s.sender.Send(sendCtx, to, email.Subject, email.RenderFor(to))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("send failed", "recipient", to, "error", err.Error())
				summary.Results[idx] = SendResult{Email: to, Status: "failed", Error: err.Error()}
				summary.Failed++
				return
			}
			summary.Results[idx] = SendResult{Email: to, Status: "sent", MessageID: messageID}
			summary.Sent++
		}(i, recipient)
	}

	wg.Wait()

	for _, result := range summary.Results {
		if result.Status == "failed" {
			summary.Errors = append(summary.Errors, SendError{Email: result.Email, Error: result.Error})
		}
	}
	return summary
}
