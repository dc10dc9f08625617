package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port string

	RedisURL string

	SupabaseURL        string
	SupabaseServiceKey string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	GeminiTimeout time.Duration

	CatalogPath        string
	CatalogDatabaseURL string
	MigrationsDir      string

	SessionIdleTTL time.Duration
}

// Load reads the configuration. Missing required keys are reported together.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	var missing []string
	required := func(key string) string {
		v := env(key, "")
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Port:               env("PORT", "8080"),
		RedisURL:           required("REDIS_URL"),
		SupabaseURL:        required("SUPABASE_URL"),
		SupabaseServiceKey: required("SUPABASE_SERVICE_KEY"),
		GeminiAPIKey:       env("GEMINI_API_KEY", ""),
		GeminiBaseURL:      env("GEMINI_BASE_URL", ""),
		GeminiModel:        env("GEMINI_MODEL", ""),
		CatalogPath:        env("CATALOG_PATH", "data/locations.json"),
		CatalogDatabaseURL: env("CATALOG_DATABASE_URL", ""),
		MigrationsDir:      env("MIGRATIONS_DIR", "migrations"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.GeminiTimeout, err = duration(env("GEMINI_TIMEOUT", "0s")); err != nil {
		return Config{}, fmt.Errorf("GEMINI_TIMEOUT: %w", err)
	}
	if cfg.SessionIdleTTL, err = duration(env("SESSION_IDLE_TTL", "2h")); err != nil {
		return Config{}, fmt.Errorf("SESSION_IDLE_TTL: %w", err)
	}

	return cfg, nil
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}
