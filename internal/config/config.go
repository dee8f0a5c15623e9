// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the matching service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// AI rationale providers. A missing key disables that provider; the
	// orchestrator simply skips it in the fallback chain.
	GeminiAPIKey  string
	OpenAIAPIKey  string
	MistralAPIKey string
	// ProviderOrder overrides the default fallback order, comma-separated
	// (e.g. "openai,gemini"). Empty means registration order.
	ProviderOrder []string
	AITimeout     time.Duration

	// Ranking fan-out bounds.
	RankingWorkers  int
	RankingPoolSize int
	PerCallTimeout  time.Duration
	BatchTimeout    time.Duration

	// How often the expiry sweep deactivates jobs past their deadline.
	ExpirySweepInterval time.Duration

	LogJSON  bool
	LogDebug bool
}

// Load reads environment variables and returns a validated Config. A local
// .env file is merged in first when present; real environment wins.
func Load() (*Config, error) {
	// Ignore the error: no .env file is the normal deployed case.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("MATCHING_PORT")
	if port == "" {
		port = "8083"
	}

	cfg := &Config{
		Port:        port,
		DatabaseURL: dbURL,
		RedisURL:    redisURL,

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		MistralAPIKey: os.Getenv("MISTRAL_API_KEY"),
		AITimeout:     durationEnv("AI_TIMEOUT", 20*time.Second),

		RankingWorkers:  intEnv("RANKING_WORKERS", 8),
		RankingPoolSize: intEnv("RANKING_POOL_SIZE", 200),
		PerCallTimeout:  durationEnv("RANKING_CALL_TIMEOUT", 2*time.Second),
		BatchTimeout:    durationEnv("RANKING_BATCH_TIMEOUT", 10*time.Second),

		ExpirySweepInterval: durationEnv("EXPIRY_SWEEP_INTERVAL", time.Hour),

		LogJSON:  boolEnv("LOG_JSON", true),
		LogDebug: boolEnv("LOG_DEBUG", false),
	}

	if order := os.Getenv("AI_PROVIDER_ORDER"); order != "" {
		for _, p := range strings.Split(order, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.ProviderOrder = append(cfg.ProviderOrder, p)
			}
		}
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func boolEnv(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
