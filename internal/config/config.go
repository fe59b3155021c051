package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// SLA windows for appeals.
	OpenSLAWindow     = 24 * time.Hour
	InReviewSLAWindow = 12 * time.Hour

	// Escalation
	EscalationInterval  = time.Minute
	EscalationCooldown  = 6 * time.Hour // 0 disables re-escalation
	EscalationBatchSize = 20

	// Outbox
	OutboxInterval         = 5 * time.Second
	OutboxBatchSize        = 10
	OutboxMaxAttempts      = 8
	OutboxRetryBaseSeconds = 30
	OutboxRetryMaxSeconds  = 3600

	// Debounce windows
	EscalationDebounceWindow = 15 * time.Minute
)

// Config holds the environment-backed runtime settings. Policy constants
// above stay compiled in; deployment-specific values come from the env.
type Config struct {
	DatabaseDSN      string
	RedisAddr        string
	RedisPassword    string
	BotToken         string
	ModerationChatID int64
	JWTSecret        string
	HTTPAddr         string
	DebounceFailOpen bool
}

// Load reads the configuration from environment variables. Callers load
// .env beforehand (godotenv in cmd wiring).
func Load() Config {
	cfg := Config{
		DatabaseDSN:      getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=modqueue port=5432 sslmode=disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		BotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-only-secret"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DebounceFailOpen: getEnvBool("DEBOUNCE_FAIL_OPEN", true),
	}
	if raw := os.Getenv("MODERATION_CHAT_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.ModerationChatID = id
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
