package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/converze/newsletter/internal/api"
	"github.com/converze/newsletter/internal/broadcast"
	"github.com/converze/newsletter/internal/config"
	"github.com/converze/newsletter/internal/content"
	"github.com/converze/newsletter/internal/newsletter"
	"github.com/converze/newsletter/internal/pkg/logger"
	"github.com/converze/newsletter/internal/ratelimit"
	"github.com/converze/newsletter/internal/resend"
	"github.com/converze/newsletter/internal/sendlog"
	"github.com/converze/newsletter/internal/ses"
	"github.com/converze/newsletter/internal/template"
	"github.com/converze/newsletter/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logger.DEBUG)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Clients
	contactStore := resend.NewClient(cfg.Resend)
	contentClient := content.NewClient(cfg.Content)
	composer := template.NewComposer(cfg.Site.URL)

	// The Resend client is the primary send provider; SES takes over
	// only when Resend has no credential but SES does.
	var sender broadcast.Sender = contactStore
	if !contactStore.Configured() && cfg.SES.Enabled {
		sesSender, err := ses.NewSender(ctx, cfg.SES, cfg.Resend.FromAddress)
		if err != nil {
			logger.Error("failed to initialize SES sender", "error", err.Error())
			os.Exit(1)
		}
		if sesSender.Configured() {
			sender = sesSender
			logger.Info("using SES as send provider")
		}
	}

	// Services
	subscriptions := newsletter.NewService(contactStore)
	broadcasts := broadcast.NewService(
		sender,
		contactStore,
		contentClient,
		composer,
		cfg.Broadcast.BatchSize,
		cfg.Broadcast.SendTimeout(),
	)

	handlers := api.NewHandlers(subscriptions, broadcasts, contactStore, cfg.Site.URL)

	// Optional broadcast history
	if cfg.History.Enabled {
		store, err := sendlog.New(cfg.History.DatabaseURL)
		if err != nil {
			logger.Error("failed to open history database", "error", err.Error())
			os.Exit(1)
		}
		defer store.Close()

		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := store.Init(initCtx); err != nil {
			initCancel()
			logger.Error("failed to initialize history database", "error", err.Error())
			os.Exit(1)
		}
		initCancel()

		broadcasts.SetRecorder(store)
		handlers.SetHistory(store)
		logger.Info("broadcast history enabled")
	}

	// Optional subscribe rate limiting
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.PerMinute)
		defer limiter.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := limiter.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, rate limiting will fail open", "error", err.Error())
		}
		pingCancel()

		handlers.SetRateLimiter(limiter)
		logger.Info("subscribe rate limiting enabled", "per_minute", cfg.RateLimit.PerMinute)
	}

	// Optional feed watcher
	if cfg.Feed.Enabled {
		watcher := worker.NewFeedWatcher(broadcasts, contentClient, cfg.Feed.URL, cfg.Feed.PollInterval())
		watcher.Start()
		defer watcher.Stop()
	}

	server := api.NewServer(cfg.Server, cfg.Auth, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		logger.Info("starting server", "addr", addr, "provider", sender.Name())
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}

	logger.Info("server stopped")
}
