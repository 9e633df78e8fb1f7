// Package config loads process configuration from the environment,
// generalizing the envInt-style helpers the teacher scattered across its
// cmd/ binaries (cmd/worker/main.go, cmd/bench/main.go) into one shared
// place, plus .env loading for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the gateway's processes need. Zero value is not
// valid; use Load.
type Config struct {
	RedisAddr     string
	RedisPoolSize int

	PostgresDSN string

	HTTPAddr string

	WorkerPoolSize int
	MaxAttempts    int

	DefaultPlanRPM         int
	DefaultPlanConcurrency int

	GlobalRPM         int
	GlobalConcurrency int

	CredentialFailureThreshold int
	CredentialCooldown        time.Duration

	CacheTTL time.Duration

	ProviderTimeout        time.Duration
	AllowEndpointFallback  bool
	WebhookTimeout         time.Duration
	WebhookMaxTries        int

	JobWallClockBudget time.Duration
}

// Load reads configuration from the environment, loading a local .env file
// first (if present) the way SServet-fakturierung-backend/database/db.go
// does with godotenv — ignored if the file is absent so the same binary
// runs unmodified in production.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize: envInt("REDIS_POOL_SIZE", 20),

		PostgresDSN: envString("POSTGRES_DSN", "postgres://localhost:5432/imagegate?sslmode=disable"),

		HTTPAddr: envString("HTTP_ADDR", ":8080"),

		WorkerPoolSize: envInt("WORKER_POOL_SIZE", 50),
		MaxAttempts:    envInt("MAX_ATTEMPTS", 4),

		DefaultPlanRPM:         envInt("DEFAULT_PLAN_RPM", 60),
		DefaultPlanConcurrency: envInt("DEFAULT_PLAN_CONCURRENCY", 10),

		GlobalRPM:         envInt("GLOBAL_RPM", 600),
		GlobalConcurrency: envInt("GLOBAL_CONCURRENCY", 200),

		CredentialFailureThreshold: envInt("CREDENTIAL_FAILURE_THRESHOLD", 5),
		CredentialCooldown:         envDuration("CREDENTIAL_COOLDOWN", 10*time.Minute),

		CacheTTL: envDuration("CACHE_TTL", 24*time.Hour),

		ProviderTimeout:       envDuration("PROVIDER_TIMEOUT", 30*time.Second),
		AllowEndpointFallback: envBool("ALLOW_ENDPOINT_FALLBACK", true),
		WebhookTimeout:        envDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookMaxTries:       envInt("WEBHOOK_MAX_TRIES", 8),

		JobWallClockBudget: envDuration("JOB_WALL_CLOCK_BUDGET", 5*time.Minute),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

