package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.True(t, cfg.Search.DomainConstants)
	assert.Equal(t, 30*time.Minute, cfg.Search.SessionTTL)
	assert.Equal(t, 2, cfg.BatchProcessing.ProcessorCount)
	assert.Equal(t, 5*time.Second, cfg.BatchProcessing.RetryDelay)
	assert.False(t, cfg.Telegram.Enabled)
	assert.False(t, cfg.Geocoding.Enabled)
	assert.Equal(t, time.Second, cfg.Geocoding.RequestInterval)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SEARCH_DOMAIN_CONSTANTS", "false")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("BATCH_MAX_RETRIES", "7")
	t.Setenv("TELEGRAM_ENABLED", "true")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Search.DomainConstants)
	assert.Equal(t, 5*time.Minute, cfg.Search.SessionTTL)
	assert.Equal(t, 7, cfg.BatchProcessing.MaxRetries)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")

	_, err := LoadConfig()
	assert.Error(t, err)
}
