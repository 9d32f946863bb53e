package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/converze/newsletter/internal/config"
)

// SetupRoutes configures all routes. The public subscribe surface is
// open (rate limited when a limiter is wired); the /api/email group is
// behind the shared-secret middleware.
func SetupRoutes(h *Handlers, authCfg config.AuthConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://converze.com", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Public subscription surface
	r.Post("/newsletter", h.Subscribe)
	r.Get("/newsletter", h.SubscriptionStatus)
	r.Get("/unsubscribe", h.Unsubscribe)

	// Admin surface, shared-secret protected
	webhookSecret := authCfg.WebhookSecret
	if webhookSecret == "" {
		webhookSecret = authCfg.APIKey
	}

	r.Route("/api/email", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireKey(authCfg.APIKey))
			r.Post("/send", h.SendBroadcast)
			r.Get("/send", h.BroadcastStatus)
			r.Get("/subscribers", h.ListSubscribers)
			r.Patch("/subscribers", h.UpdateSubscriber)
			r.Get("/history", h.BroadcastHistory)
		})

		// The trigger endpoint is what the CMS webhook calls, so it
		// carries its own secret.
		r.Group(func(r chi.Router) {
			r.Use(requireKey(webhookSecret))
			r.Post("/trigger", h.TriggerPost)
		})
	})

	return r
}

// requireKey accepts the secret as "Authorization: Bearer <key>" or as
// a ?key= query parameter. An empty configured key locks the group
// shut rather than leaving it open.
func requireKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if key == "" || !presentsKey(req, key) {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func presentsKey(req *http.Request, key string) bool {
	if req.Header.Get("Authorization") == "Bearer "+key {
		return true
	}
	return req.URL.Query().Get("key") == key
}
