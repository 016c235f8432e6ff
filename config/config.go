// Package config loads the server configuration from environment variables.
// A .env file is read first when present (development convenience); real
// environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sender policies for the messaging subsystem.
const (
	SenderPolicyAnonymous   = "anonymous"    // every sender field discarded
	SenderPolicyKeepReplies = "keep-replies" // message senders discarded, reply senders kept
)

// Config carries every configuration value, one struct per concern.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string // e.g. ./data/emocircle.db
}

// AuthConfig holds the facilitator token settings. The identity provider
// signs HS256 tokens with Secret; the server only verifies them.
type AuthConfig struct {
	Secret      string
	TokenExpiry time.Duration // lifetime of tokens minted by `emocircle token`
}

// SessionConfig holds lifecycle, aggregation and sync choices.
type SessionConfig struct {
	CodeLength          int
	CodeReuse           bool // codes unique among Active sessions only
	IncludeZeroEmotions bool // summaries list zero-count categories with 0%
	SenderPolicy        string
	PollInterval        time.Duration // advertised to clients, used by `emocircle watch`
}

// RateLimitConfig holds the message spam limits.
type RateLimitConfig struct {
	Messages int
	Window   time.Duration
	Cooldown time.Duration

	// Code lookups and joins per client address.
	JoinAttempts int
	JoinWindow   time.Duration

	// TrustProxyHeaders keys limits on X-Forwarded-For / X-Real-IP. Enable it
	// only behind a reverse proxy that overwrites them; otherwise any client
	// can rotate the header and escape every per-address limit.
	TrustProxyHeaders bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	JSON  bool
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	// Missing .env is fine: production uses real environment variables.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	tokenExpiry, err := time.ParseDuration(getEnv("AUTH_TOKEN_EXPIRY", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_EXPIRY: %w", err)
	}

	codeLength, err := strconv.Atoi(getEnv("SESSION_CODE_LENGTH", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_CODE_LENGTH: %w", err)
	}
	if codeLength < 4 || codeLength > 12 {
		return nil, fmt.Errorf("invalid SESSION_CODE_LENGTH: must be between 4 and 12, got %d", codeLength)
	}

	codeReuse, err := strconv.ParseBool(getEnv("SESSION_CODE_REUSE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_CODE_REUSE: %w", err)
	}

	includeZero, err := strconv.ParseBool(getEnv("EMOTION_INCLUDE_ZERO", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMOTION_INCLUDE_ZERO: %w", err)
	}

	senderPolicy := getEnv("MESSAGE_SENDER_POLICY", SenderPolicyAnonymous)
	if senderPolicy != SenderPolicyAnonymous && senderPolicy != SenderPolicyKeepReplies {
		return nil, fmt.Errorf("invalid MESSAGE_SENDER_POLICY: %q", senderPolicy)
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}

	rateMessages, err := strconv.Atoi(getEnv("RATE_LIMIT_MESSAGES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MESSAGES: %w", err)
	}
	rateWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	rateCooldown, err := time.ParseDuration(getEnv("RATE_LIMIT_COOLDOWN", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_COOLDOWN: %w", err)
	}

	joinAttempts, err := strconv.Atoi(getEnv("RATE_LIMIT_JOIN_ATTEMPTS", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_JOIN_ATTEMPTS: %w", err)
	}
	joinWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_JOIN_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_JOIN_WINDOW: %w", err)
	}

	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY_HEADERS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUST_PROXY_HEADERS: %w", err)
	}

	logJSON, err := strconv.ParseBool(getEnv("LOG_JSON", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_JSON: %w", err)
	}

	secret := getEnv("AUTH_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("AUTH_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/emocircle.db"),
		},
		Auth: AuthConfig{
			Secret:      secret,
			TokenExpiry: tokenExpiry,
		},
		Session: SessionConfig{
			CodeLength:          codeLength,
			CodeReuse:           codeReuse,
			IncludeZeroEmotions: includeZero,
			SenderPolicy:        senderPolicy,
			PollInterval:        pollInterval,
		},
		RateLimit: RateLimitConfig{
			Messages: rateMessages,
			Window:   rateWindow,
			Cooldown: rateCooldown,

			JoinAttempts:      joinAttempts,
			JoinWindow:        joinWindow,
			TrustProxyHeaders: trustProxy,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  logJSON,
		},
	}

	return cfg, nil
}

// Addr returns the listen address, e.g. "0.0.0.0:5000".
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv reads an environment variable, falling back when unset.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
