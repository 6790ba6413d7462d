// Package config builds the runtime configuration from the environment so
// main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything the server needs to start.
type Config struct {
	Addr string

	// Storage selects the persistence backend: "memory" or "postgres".
	Storage     string
	DatabaseURL string

	// RedisURL enables the dashboard cache and the Redis-backed submission
	// rate limiter. Empty falls back to in-process equivalents.
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	// KafkaBrokers enables the audit outbox relay. Empty disables it.
	KafkaBrokers []string
	KafkaTopic   string

	UploadDir string

	BootstrapAdminUser     string
	BootstrapAdminPassword string

	// SubmitRateLimit is votes per minute per client IP.
	SubmitRateLimit int
}

// FromEnv reads the environment, applying development defaults for
// everything except the JWT secret in postgres mode.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:                   envOr("VOTEDECK_ADDR", ":8080"),
		Storage:                envOr("VOTEDECK_STORAGE", "memory"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		JWTSecret:              envOr("JWT_SECRET", ""),
		JWTTTL:                 8 * time.Hour,
		KafkaTopic:             envOr("KAFKA_AUDIT_TOPIC", "votedeck.audit"),
		UploadDir:              envOr("UPLOAD_DIR", "./uploads"),
		BootstrapAdminUser:     envOr("BOOTSTRAP_ADMIN_USER", "admin"),
		BootstrapAdminPassword: envOr("BOOTSTRAP_ADMIN_PASSWORD", "change-me"),
		SubmitRateLimit:        10,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return Config{}, fmt.Errorf("parse JWT_TTL: %w", err)
		}
		cfg.JWTTTL = parsed
	}

	if limit := os.Getenv("SUBMIT_RATE_LIMIT"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 1 {
			return Config{}, fmt.Errorf("SUBMIT_RATE_LIMIT must be a positive integer")
		}
		cfg.SubmitRateLimit = parsed
	}

	switch cfg.Storage {
	case "memory":
		if cfg.JWTSecret == "" {
			// Development only; New rejects short secrets, so this cannot
			// leak into a production build silently.
			cfg.JWTSecret = "dev-secret-key-change-in-production!!"
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when VOTEDECK_STORAGE=postgres")
		}
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET is required when VOTEDECK_STORAGE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("VOTEDECK_STORAGE must be memory or postgres, got %q", cfg.Storage)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
