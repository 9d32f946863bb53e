package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Site      SiteConfig      `yaml:"site"`
	Resend    ResendConfig    `yaml:"resend"`
	SES       SESConfig       `yaml:"ses"`
	Content   ContentConfig   `yaml:"content"`
	Auth      AuthConfig      `yaml:"auth"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	History   HistoryConfig   `yaml:"history"`
	Feed      FeedConfig      `yaml:"feed"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// SiteConfig holds public site settings used in composed emails
type SiteConfig struct {
	URL string `yaml:"url"`
}

// ResendConfig holds Resend API configuration (contacts + transactional send)
type ResendConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	FromAddress     string `yaml:"from_address"`
	AudienceID      string `yaml:"audience_id"`
	ContactPageSize int    `yaml:"contact_page_size"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c ResendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES v2 configuration for the alternate send provider
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ContentConfig holds the headless CMS (Sanity) read configuration
type ContentConfig struct {
	ProjectID      string `yaml:"project_id"`
	Dataset        string `yaml:"dataset"`
	APIVersion     string `yaml:"api_version"`
	BaseURL        string `yaml:"base_url"` // override for tests; derived from project id when empty
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c ContentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds the shared-secret authorization settings for admin endpoints
type AuthConfig struct {
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// BroadcastConfig holds broadcast fan-out settings
type BroadcastConfig struct {
	BatchSize          int `yaml:"batch_size"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`
}

// SendTimeout returns the per-recipient send timeout as a duration
func (c BroadcastConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// RateLimitConfig holds per-IP rate limiting for the public subscribe endpoint
type RateLimitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	PerMinute     int    `yaml:"per_minute"`
}

// HistoryConfig holds the optional Postgres broadcast history log
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DatabaseURL string `yaml:"database_url"`
}

// FeedConfig holds the RSS feed watcher settings
type FeedConfig struct {
	Enabled             bool   `yaml:"enabled"`
	URL                 string `yaml:"url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// PollInterval returns the feed poll interval as a duration
func (c FeedConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Site.URL == "" {
		cfg.Site.URL = "http://localhost:3000"
	}
	if cfg.Resend.BaseURL == "" {
		cfg.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Resend.FromAddress == "" {
		cfg.Resend.FromAddress = "noreply@converze.com"
	}
	if cfg.Resend.ContactPageSize == 0 {
		cfg.Resend.ContactPageSize = 1000
	}
	if cfg.Resend.TimeoutSeconds == 0 {
		cfg.Resend.TimeoutSeconds = 30
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Content.Dataset == "" {
		cfg.Content.Dataset = "production"
	}
	if cfg.Content.APIVersion == "" {
		cfg.Content.APIVersion = "2024-01-01"
	}
	if cfg.Content.TimeoutSeconds == 0 {
		cfg.Content.TimeoutSeconds = 15
	}
	if cfg.Broadcast.BatchSize == 0 {
		cfg.Broadcast.BatchSize = 50
	}
	if cfg.Broadcast.SendTimeoutSeconds == 0 {
		cfg.Broadcast.SendTimeoutSeconds = 30
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 5
	}
	if cfg.Feed.PollIntervalSeconds == 0 {
		cfg.Feed.PollIntervalSeconds = 300
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
// A missing config file is fine here; env-only deployments start from
// the defaults.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Resend.APIKey = v
	}
	if v := os.Getenv("RESEND_BASE_URL"); v != "" {
		cfg.Resend.BaseURL = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Resend.FromAddress = v
	}
	if v := os.Getenv("RESEND_AUDIENCE_ID"); v != "" {
		cfg.Resend.AudienceID = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if cfg.SES.AccessKey != "" && cfg.SES.SecretKey != "" {
		cfg.SES.Enabled = true
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SANITY_PROJECT_ID"); v != "" {
		cfg.Content.ProjectID = v
	}
	if v := os.Getenv("SANITY_DATASET"); v != "" {
		cfg.Content.Dataset = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		cfg.Site.URL = v
	}
	if v := os.Getenv("EMAIL_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Auth.WebhookSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
		cfg.RateLimit.Enabled = true
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.History.DatabaseURL = v
		cfg.History.Enabled = true
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Feed.URL = v
		cfg.Feed.Enabled = true
	}
	if v := os.Getenv("BROADCAST_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Broadcast.BatchSize = n
		}
	}

	return cfg, nil
}
