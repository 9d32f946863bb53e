package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/converze/newsletter/internal/broadcast"
	"github.com/converze/newsletter/internal/newsletter"
	"github.com/converze/newsletter/internal/pkg/logger"
	"github.com/converze/newsletter/internal/resend"
	"github.com/converze/newsletter/internal/sendlog"
)

// SubscriptionService runs the public subscribe/unsubscribe workflow.
type SubscriptionService interface {
	Subscribe(ctx context.Context, email, source string) (newsletter.Outcome, error)
	CheckStatus(ctx context.Context, email string) (*newsletter.Status, error)
	Unsubscribe(ctx context.Context, email string) error
}

// BroadcastService runs campaigns and reports provider status.
type BroadcastService interface {
	Broadcast(ctx context.Context, req broadcast.Request) (*broadcast.Summary, error)
	Status(ctx context.Context) (*broadcast.ServiceStatus, error)
}

// ContactAdmin is the contact store surface the admin endpoints need.
type ContactAdmin interface {
	GetContact(ctx context.Context, email string) (*resend.Contact, error)
	UpdateContact(ctx context.Context, email string, attrs resend.ContactAttrs) (*resend.Contact, error)
	ListContacts(ctx context.Context, opts resend.ListOptions) (*resend.ContactList, error)
}

// HistoryStore reads past broadcast records.
type HistoryStore interface {
	List(ctx context.Context, limit int) ([]sendlog.Entry, error)
}

// RateLimiter throttles the public subscribe endpoint per client IP.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// Handlers contains all HTTP handlers
type Handlers struct {
	subscriptions SubscriptionService
	broadcasts    BroadcastService
	contacts      ContactAdmin
	history       HistoryStore
	limiter       RateLimiter
	siteURL       string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(subscriptions SubscriptionService, broadcasts BroadcastService, contacts ContactAdmin, siteURL string) *Handlers {
	return &Handlers{
		subscriptions: subscriptions,
		broadcasts:    broadcasts,
		contacts:      contacts,
		siteURL:       siteURL,
	}
}

// SetHistory wires the optional broadcast history store.
func (h *Handlers) SetHistory(store HistoryStore) {
	h.history = store
}

// SetRateLimiter wires the optional subscribe rate limiter.
func (h *Handlers) SetRateLimiter(limiter RateLimiter) {
	h.limiter = limiter
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Subscribe handles POST /newsletter.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(r.Context(), clientIP(r)) {
		respondError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	var body struct {
		Email  string `json:"email"`
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if body.Source == "" {
		body.Source = "other"
	}

	outcome, err := h.subscriptions.Subscribe(r.Context(), body.Email, body.Source)
	if err != nil {
		if errors.Is(err, newsletter.ErrInvalidEmail) {
			respondError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to subscribe. Please try again later.")
		return
	}

	resp := map[string]interface{}{"message": outcome.Message()}
	status := http.StatusOK
	switch outcome {
	case newsletter.OutcomeSubscribed:
		status = http.StatusCreated
	case newsletter.OutcomeAlreadySubscribed:
		resp["alreadySubscribed"] = true
	case newsletter.OutcomeResubscribed:
		resp["resubscribed"] = true
	}
	respondJSON(w, status, resp)
}

// SubscriptionStatus handles GET /newsletter?email=.
func (h *Handlers) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	status, err := h.subscriptions.CheckStatus(r.Context(), email)
	if err != nil {
		if errors.Is(err, newsletter.ErrInvalidEmail) {
			respondError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to check subscription status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Unsubscribe handles GET /unsubscribe?email=. It answers with a
// human-readable confirmation page because the link lands in a mail
// client, not an API consumer.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "Email parameter required", http.StatusBadRequest)
		return
	}

	err := h.subscriptions.Unsubscribe(r.Context(), email)
	switch {
	case errors.Is(err, newsletter.ErrInvalidEmail):
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	case errors.Is(err, newsletter.ErrNotSubscribed):
		http.Error(w, "Subscriber not found", http.StatusNotFound)
		return
	case err != nil:
		logger.Error("unsubscribe failed", "error", err.Error())
		http.Error(w, "Failed to unsubscribe", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, unsubscribePage, h.siteURL)
}

// SendBroadcast handles POST /api/email/send.
func (h *Handlers) SendBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcast.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.broadcasts.Broadcast(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, broadcast.ErrInvalidCampaign):
			respondError(w, http.StatusBadRequest, "Invalid email type or missing required fields")
		case errors.Is(err, broadcast.ErrNoActiveSubscribers):
			respondError(w, http.StatusBadRequest, "No active subscribers found")
		case errors.Is(err, broadcast.ErrPostNotFound):
			respondError(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, broadcast.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "Email service not configured")
		default:
			respondSafeError(w, http.StatusInternalServerError, err, "Failed to send emails")
		}
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"sent":    summary.Sent,
		"failed":  summary.Failed,
		"total":   summary.Total,
		"results": summary.Results,
	}
	if len(summary.Errors) > 0 {
		resp["errors"] = summary.Errors
	}
	respondJSON(w, http.StatusOK, resp)
}

// BroadcastStatus handles GET /api/email/send.
func (h *Handlers) BroadcastStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.broadcasts.Status(r.Context())
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to check email status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ListSubscribers handles GET /api/email/subscribers.
func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter == "" {
		statusFilter = "active"
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	list, err := h.contacts.ListContacts(r.Context(), resend.ListOptions{})
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to get subscribers")
		return
	}

	var active, unsubscribed int
	filtered := make([]resend.Contact, 0, len(list.Data))
	for _, contact := range list.Data {
		if contact.Unsubscribed {
			unsubscribed++
		} else {
			active++
		}
		switch statusFilter {
		case "all":
			filtered = append(filtered, contact)
		case "unsubscribed":
			if contact.Unsubscribed {
				filtered = append(filtered, contact)
			}
		default:
			if !contact.Unsubscribed {
				filtered = append(filtered, contact)
			}
		}
	}

	page := filtered
	if offset >= len(filtered) {
		page = nil
	} else {
		page = filtered[offset:]
		if limit > 0 && limit < len(page) {
			page = page[:limit]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscribers": page,
		"stats": map[string]int{
			"total":        len(list.Data),
			"active":       active,
			"unsubscribed": unsubscribed,
		},
		"pagination": map[string]int{
			"limit":  limit,
			"offset": offset,
			"total":  len(filtered),
		},
	})
}

// UpdateSubscriber handles PATCH /api/email/subscribers.
func (h *Handlers) UpdateSubscriber(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email  string `json:"email"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Status == "" {
		respondError(w, http.StatusBadRequest, "Email and status required")
		return
	}
	if body.Status != "active" && body.Status != "unsubscribed" {
		respondError(w, http.StatusBadRequest, "Status must be active or unsubscribed")
		return
	}

	contact, err := h.contacts.GetContact(r.Context(), body.Email)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to update subscriber")
		return
	}
	if contact == nil {
		respondError(w, http.StatusNotFound, "Subscriber not found")
		return
	}

	_, err = h.contacts.UpdateContact(r.Context(), body.Email, resend.ContactAttrs{
		Unsubscribed: body.Status == "unsubscribed",
	})
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to update subscriber")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Subscriber updated",
	})
}

// TriggerPost handles POST /api/email/trigger. It runs the blog-post
// campaign in-process instead of calling back through the HTTP API.
func (h *Handlers) TriggerPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PostID string `json:"postId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PostID == "" {
		respondError(w, http.StatusBadRequest, "Post ID required")
		return
	}

	summary, err := h.broadcasts.Broadcast(r.Context(), broadcast.Request{
		Type:   broadcast.TypeBlogPost,
		PostID: body.PostID,
	})
	if err != nil {
		switch {
		case errors.Is(err, broadcast.ErrPostNotFound):
			respondError(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, broadcast.ErrNoActiveSubscribers):
			respondError(w, http.StatusBadRequest, "No active subscribers found")
		case errors.Is(err, broadcast.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "Email service not configured")
		default:
			respondSafeError(w, http.StatusInternalServerError, err, "Failed to trigger emails")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Emails triggered successfully",
		"result": map[string]interface{}{
			"sent":   summary.Sent,
			"failed": summary.Failed,
			"total":  summary.Total,
		},
	})
}

// BroadcastHistory handles GET /api/email/history.
func (h *Handlers) BroadcastHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "Broadcast history is not enabled")
		return
	}

	entries, err := h.history.List(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to get broadcast history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// clientIP trusts chi's RealIP middleware, which has already folded
// X-Forwarded-For / X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const unsubscribePage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Unsubscribed</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      display: flex;
      align-items: center;
      justify-content: center;
      min-height: 100vh;
      margin: 0;
      background: #f9fafb;
    }
    .container {
      background: white;
      padding: 32px;
      border-radius: 8px;
      box-shadow: 0 1px 3px rgba(0,0,0,0.1);
      text-align: center;
      max-width: 400px;
    }
    h1 { color: #000; margin: 0 0 16px 0; }
    p { color: #666; margin: 0 0 24px 0; }
    a {
      color: #3b82f6;
      text-decoration: none;
    }
    a:hover { text-decoration: underline; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Successfully Unsubscribed</h1>
    <p>You have been unsubscribed from the Converze newsletter. You will no longer receive email updates.</p>
    <p><a href="%s">Return to website</a></p>
  </div>
</body>
</html>`
