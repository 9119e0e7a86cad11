package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	// Database; postgres:// URLs use lib/pq, anything else is a sqlite DSN
	DatabaseURL string
	// OpenAI-compatible provider used by the llm and cascade extractors
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	LLMTimeout    time.Duration
	// Extractor selects the entity extraction strategy: regex, llm or cascade
	Extractor           string
	ExtractorPromptFile string
	// Quick-update sessions
	SessionBackend       string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	RequestTimeout       time.Duration
	SecureCookies        bool
	// Logging
	LogLevel  string
	LogFormat string
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                 getEnvDefault("PORT", "8080"),
		AllowedOrigins:       getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		DatabaseURL:          getEnvDefault("DB_URL", "file:tracker.db?_foreign_keys=on"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		Model:                getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:           time.Duration(getEnvIntDefault("LLM_TIMEOUT_MS", 10000)) * time.Millisecond,
		Extractor:            strings.ToLower(getEnvDefault("EXTRACTOR", "regex")),
		ExtractorPromptFile:  os.Getenv("EXTRACTOR_PROMPT_FILE"),
		SessionBackend:       strings.ToLower(getEnvDefault("SESSION_BACKEND", "memory")),
		SessionTTL:           time.Duration(getEnvIntDefault("SESSION_TTL_MINUTES", 15)) * time.Minute,
		SessionSweepInterval: time.Duration(getEnvIntDefault("SESSION_SWEEP_SECONDS", 60)) * time.Second,
		RequestTimeout:       time.Duration(getEnvIntDefault("REQUEST_TIMEOUT_MS", 20000)) * time.Millisecond,
		SecureCookies:        getEnvBoolDefault("SECURE_COOKIES", false),
		LogLevel:             getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvDefault("LOG_FORMAT", "json"),
	}
}

// UsesLLM reports whether the configured extractor calls the language model.
func (c Config) UsesLLM() bool {
	return c.Extractor == "llm" || c.Extractor == "cascade"
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
