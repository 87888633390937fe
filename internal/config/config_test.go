package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "longpost.db", cfg.DatabaseURL)
	assert.Equal(t, "https://bsky.social", cfg.PDSURL)
	assert.Equal(t, "https://api.bsky.app", cfg.AppViewURL)
	assert.Equal(t, 300, cfg.MinContentLen)
	assert.Equal(t, 10000, cfg.MaxContentLen)
	assert.Equal(t, 5, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/longpost")
	t.Setenv("MIN_CONTENT_LENGTH", "100")
	t.Setenv("MAX_CONTENT_LENGTH", "500")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres://app:secret@db:5432/longpost", cfg.DatabaseURL)
	assert.Equal(t, 100, cfg.MinContentLen)
	assert.Equal(t, 500, cfg.MaxContentLen)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad port", key: "PORT", value: "not-a-port"},
		{name: "bad window", key: "RATE_LIMIT_WINDOW", value: "soon"},
		{name: "bad min length", key: "MIN_CONTENT_LENGTH", value: "many"},
		{name: "min above max", key: "MIN_CONTENT_LENGTH", value: "20000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
