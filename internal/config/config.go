package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabaseURL selects the post store. A postgres:// or postgresql://
	// URL uses PostgreSQL; anything else is treated as a SQLite file path.
	DatabaseURL string

	// PDSURL is the Bluesky PDS used for session creation and verification.
	PDSURL string

	// AppViewURL is the public AppView used for profile lookups.
	AppViewURL string

	// MinContentLen and MaxContentLen bound post content length in runes,
	// measured after trimming surrounding whitespace.
	MinContentLen int
	MaxContentLen int

	// RateLimitMax is the number of post creations allowed per client
	// within RateLimitWindow.
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            3000,
		DatabaseURL:     "longpost.db",
		PDSURL:          "https://bsky.social",
		AppViewURL:      "https://api.bsky.app",
		MinContentLen:   300,
		MaxContentLen:   10000,
		RateLimitMax:    5,
		RateLimitWindow: time.Minute,
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("BLUESKY_PDS_URL"); v != "" {
		cfg.PDSURL = v
	}
	if v := os.Getenv("BLUESKY_APPVIEW_URL"); v != "" {
		cfg.AppViewURL = v
	}

	if err := applyInt("MIN_CONTENT_LENGTH", &cfg.MinContentLen); err != nil {
		return nil, err
	}
	if err := applyInt("MAX_CONTENT_LENGTH", &cfg.MaxContentLen); err != nil {
		return nil, err
	}
	if cfg.MinContentLen < 1 || cfg.MaxContentLen < cfg.MinContentLen {
		return nil, fmt.Errorf("invalid content bounds: min=%d max=%d", cfg.MinContentLen, cfg.MaxContentLen)
	}

	if err := applyInt("RATE_LIMIT_MAX", &cfg.RateLimitMax); err != nil {
		return nil, err
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
		}
		cfg.RateLimitWindow = window
	}

	return cfg, nil
}

func applyInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = n
	return nil
}
