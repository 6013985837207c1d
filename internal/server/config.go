// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the Ripple relay.
package server

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// defaultGiphyAPIKey is Giphy's public beta key, usable without signup.
const defaultGiphyAPIKey = "dc6zaTOxFJmzC"

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration settings including the admin identity,
// history bounds, and security controls.
type Config struct {
	Port                string
	AllowedOrigins      []string
	MaxMessageSize      int64
	RateLimit           RateLimitConfig
	AdminUsername       string
	HistoryCapacity     int
	GiphyAPIKey         string
	ClearHistoryOnEmpty bool
	StaticDir           string
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		AdminUsername:       "usayd",
		HistoryCapacity:     500,
		GiphyAPIKey:         defaultGiphyAPIKey,
		ClearHistoryOnEmpty: false,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "usayd"
	}

	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 500
	}

	if cfg.GiphyAPIKey == "" {
		cfg.GiphyAPIKey = defaultGiphyAPIKey
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Port:           cfg.Port,
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize: cfg.MaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimit.Burst,
			RefillInterval: cfg.RateLimit.RefillInterval,
		},
		AdminUsername:       cfg.AdminUsername,
		HistoryCapacity:     cfg.HistoryCapacity,
		GiphyAPIKey:         cfg.GiphyAPIKey,
		ClearHistoryOnEmpty: cfg.ClearHistoryOnEmpty,
		StaticDir:           cfg.StaticDir,
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if admin := os.Getenv("ADMIN_USERNAME"); admin != "" {
		cfg.AdminUsername = admin
	}

	if capacity := os.Getenv("HISTORY_CAPACITY"); capacity != "" {
		cfg.HistoryCapacity = parseIntValue(capacity, cfg.HistoryCapacity)
	}

	if key := os.Getenv("GIPHY_API_KEY"); key != "" {
		cfg.GiphyAPIKey = key
	}

	if clear := os.Getenv("CLEAR_HISTORY_ON_EMPTY"); clear != "" {
		cfg.ClearHistoryOnEmpty = parseBoolValue(clear, cfg.ClearHistoryOnEmpty)
	}

	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
