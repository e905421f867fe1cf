// Package config reads pantry settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Port        string
	DBPath      string
	LogLevel    string
	LogFormat   string
	DetailGuard bool
}

// Load reads .env files (missing ones are ignored) and then the PANTRY_*
// variables. Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset keys.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return def
	}

	cfg := Config{
		BaseURL:   get("PANTRY_API_BASE_URL", "http://localhost:8000"),
		Port:      get("PANTRY_PORT", "8080"),
		DBPath:    get("PANTRY_DB_PATH", "pantry.db"),
		LogLevel:  get("PANTRY_LOG_LEVEL", "info"),
		LogFormat: get("PANTRY_LOG_FORMAT", "text"),
	}

	timeout, err := time.ParseDuration(get("PANTRY_API_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PANTRY_API_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("PANTRY_API_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.Timeout = timeout

	if v := get("PANTRY_DETAIL_GUARD", ""); v != "" {
		guard, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse PANTRY_DETAIL_GUARD: %w", err)
		}
		cfg.DetailGuard = guard
	}

	if cfg.BaseURL == "" {
		return Config{}, errors.New("PANTRY_API_BASE_URL is required")
	}
	return cfg, nil
}
