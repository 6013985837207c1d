package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "usayd", cfg.AdminUsername)
	assert.Equal(t, 500, cfg.HistoryCapacity)
	assert.NotEmpty(t, cfg.GiphyAPIKey)
	assert.False(t, cfg.ClearHistoryOnEmpty)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, https://chat.example.org")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("ADMIN_USERNAME", "operator")
	t.Setenv("HISTORY_CAPACITY", "100")
	t.Setenv("GIPHY_API_KEY", "secret")
	t.Setenv("CLEAR_HISTORY_ON_EMPTY", "true")
	t.Setenv("STATIC_DIR", "./public")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "https://chat.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "operator", cfg.AdminUsername)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.Equal(t, "secret", cfg.GiphyAPIKey)
	assert.True(t, cfg.ClearHistoryOnEmpty)
	assert.Equal(t, "./public", cfg.StaticDir)
}

func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-3")
	t.Setenv("HISTORY_CAPACITY", "0")
	t.Setenv("CLEAR_HISTORY_ON_EMPTY", "sometimes")

	cfg := NewConfigFromEnv()
	defaults := defaultConfig()

	assert.Equal(t, defaults.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, defaults.RateLimit.Burst, cfg.RateLimit.Burst)
	assert.Equal(t, defaults.HistoryCapacity, cfg.HistoryCapacity)
	assert.Equal(t, defaults.ClearHistoryOnEmpty, cfg.ClearHistoryOnEmpty)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	SetConfig(&Config{})
	t.Cleanup(func() { SetConfig(nil) })

	cfg := currentConfig()
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "usayd", cfg.AdminUsername)
	assert.Equal(t, 500, cfg.HistoryCapacity)
	assert.NotEmpty(t, cfg.GiphyAPIKey)
}
