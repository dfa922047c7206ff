// Package config loads environment configuration and the lexicon used by
// the text pipeline. All values are resolved once at startup and passed
// into components explicitly; nothing here is mutated afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting, env-first with defaults.
type Config struct {
	// LLM
	OpenAIModel   string
	OpenAIAPIKey  string
	LLMTimeout    time.Duration
	AllowNoLLMKey bool

	// Drug reference index
	EmbeddingsModel  string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Pharmacy directory (MINSAL)
	MinsalLocalesURL string
	MinsalTurnosURL  string
	UpstreamTimeout  time.Duration

	// Core behavior
	MaxResults            int
	WindowLimit           int
	SessionTTL            time.Duration
	FallbackNeedsLocality bool

	// Transport
	APIPort int
	WSPort  int

	// Lexicon override file (optional)
	LexiconPath string
}

// LoadEnv loads .env (when present) and builds the configuration.
func LoadEnv() (*Config, error) {
	// Try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		AllowNoLLMKey: getEnv("LLM_ALLOW_NO_KEY", "") == "true",

		EmbeddingsModel:  getEnv("EMBEDDINGS_MODEL", "text-embedding-3-large"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "med_agent_drugs"),

		MinsalLocalesURL: getEnv("MINSAL_GET_LOCALES", "https://midas.minsal.cl/farmacia_v2/WS/getLocales.php"),
		MinsalTurnosURL:  getEnv("MINSAL_GET_TURNOS", "https://midas.minsal.cl/farmacia_v2/WS/getLocalesTurnos.php"),

		FallbackNeedsLocality: getEnv("FALLBACK_NEEDS_LOCALITY", "true") != "false",
		LexiconPath:           getEnv("LEXICON_PATH", ""),
	}

	cfg.MaxResults = getEnvInt("MAX_RESULTS", 20)
	cfg.WindowLimit = getEnvInt("WINDOW_LIMIT", 10)
	cfg.APIPort = getEnvInt("API_PORT", 8080)
	cfg.WSPort = getEnvInt("WS_PORT", 8085)

	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", 12*time.Second)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 20*time.Second)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 30*time.Minute)

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func expandEnvVars(s string) string {
	// Replace ${VAR_NAME} with environment variable values
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}
