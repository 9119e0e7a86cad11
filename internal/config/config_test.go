package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ALLOWED_ORIGINS", "DB_URL", "EXTRACTOR", "SESSION_BACKEND", "SESSION_TTL_MINUTES", "SECURE_COOKIES", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "regex", cfg.Extractor)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.UsesLLM())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, ,https://tracker.example.com")
	t.Setenv("EXTRACTOR", "Cascade")
	t.Setenv("SESSION_TTL_MINUTES", " 5 ")
	t.Setenv("LLM_TIMEOUT_MS", "250")
	t.Setenv("SECURE_COOKIES", "yes")
	t.Setenv("REQUEST_TIMEOUT_MS", "not-a-number")

	cfg := Load()
	assert.Equal(t, []string{"http://localhost:3000", "https://tracker.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "cascade", cfg.Extractor)
	assert.True(t, cfg.UsesLLM())
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.LLMTimeout)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
}
