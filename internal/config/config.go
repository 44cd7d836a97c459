package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	AppEnv           string
	SessionDir       string
	DevMode          bool
	StubCode         string
	StubPassword     string
	PendingTTLMin    int
	PollTimeoutSec   int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AppEnv:           getEnv("APP_ENV", "development"),
		SessionDir:       getEnv("SESSION_DIR", "sessions"),
		DevMode:          getEnv("DEV_MODE", "") == "true",
		StubCode:         getEnv("STUB_LOGIN_CODE", "13579"),
		StubPassword:     getEnv("STUB_2FA_PASSWORD", ""),
	}

	cfg.PendingTTLMin = getEnvAsInt("PENDING_TTL_MINUTES", 15)
	cfg.PollTimeoutSec = getEnvAsInt("POLL_TIMEOUT_SECONDS", 60)

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// PendingTTL returns the pending-authentication expiry as a duration.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMin) * time.Minute
}

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("⚠️ Warning: %s must be int, using default %d\n", key, defaultVal)
		return defaultVal
	}
	return val
}
