package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "https://api.resend.com", cfg.Resend.BaseURL)
	assert.Equal(t, "noreply@converze.com", cfg.Resend.FromAddress)
	assert.Equal(t, 1000, cfg.Resend.ContactPageSize)
	assert.Equal(t, 50, cfg.Broadcast.BatchSize)
	assert.Equal(t, 30, cfg.Broadcast.SendTimeoutSeconds)
	assert.Equal(t, "production", cfg.Content.Dataset)
	assert.Equal(t, "2024-01-01", cfg.Content.APIVersion)
	assert.Equal(t, 5, cfg.RateLimit.PerMinute)
	assert.Equal(t, 300, cfg.Feed.PollIntervalSeconds)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: 127.0.0.1
site:
  url: https://converze.com
resend:
  api_key: re_test
  from_address: hello@converze.com
  timeout_seconds: 10
broadcast:
  batch_size: 25
  send_timeout_seconds: 15
auth:
  api_key: admin-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://converze.com", cfg.Site.URL)
	assert.Equal(t, "re_test", cfg.Resend.APIKey)
	assert.Equal(t, "hello@converze.com", cfg.Resend.FromAddress)
	assert.Equal(t, 25, cfg.Broadcast.BatchSize)
	assert.Equal(t, "admin-secret", cfg.Auth.APIKey)
	assert.Equal(t, 10, cfg.Resend.TimeoutSeconds)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, "resend:\n  api_key: from-file\n")

	t.Setenv("RESEND_API_KEY", "from-env")
	t.Setenv("EMAIL_FROM", "news@converze.com")
	t.Setenv("EMAIL_API_KEY", "secret-from-env")
	t.Setenv("DATABASE_URL", "postgres://localhost/newsletter")
	t.Setenv("BROADCAST_BATCH_SIZE", "10")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Resend.APIKey)
	assert.Equal(t, "news@converze.com", cfg.Resend.FromAddress)
	assert.Equal(t, "secret-from-env", cfg.Auth.APIKey)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "postgres://localhost/newsletter", cfg.History.DatabaseURL)
	assert.Equal(t, 10, cfg.Broadcast.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFromEnvMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.resend.com", cfg.Resend.BaseURL)
}
