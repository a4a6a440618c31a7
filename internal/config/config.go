package config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Port              string
	Env               string
	DatabasePath      string
	MediaRoot         string
	SMTPHost          string
	SMTPPort          int
	LowStockThreshold int
}

// Load reads configuration from the environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded by main) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.DatabasePath = getEnv("DATABASE_PATH", "quarrystock.db")
	cfg.MediaRoot = getEnv("MEDIA_ROOT", "media")
	cfg.SMTPHost = getEnv("SMTP_HOST", "smtp.gmail.com")
	cfg.SMTPPort = ParseInt("SMTP_PORT", 587)
	cfg.LowStockThreshold = ParseInt("LOW_STOCK_THRESHOLD", 10)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseInt reads an env var as int with default.
func ParseInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env var")
			return def
		}
		return n
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean env var")
			return def
		}
		return b
	}
	return def
}
