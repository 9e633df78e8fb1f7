// Package httpapi exposes the tenant-facing HTTP surface: job submission,
// polling, listing, and cancellation, behind bearer API-key
// authentication. Grounded on SServet-fakturierung-backend/main.go's
// fiber.New + cors + limiter + routes.Register wiring.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/imagegate/gateway/internal/repository"
)

// Config carries the HTTP-layer tunables.
type Config struct {
	AllowedOrigins  string
	BodyLimitBytes  int
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxAttempts     int
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:  "*",
		BodyLimitBytes:  4 * 1024 * 1024,
		RateLimitMax:    60,
		RateLimitWindow: time.Minute,
		MaxAttempts:     4,
	}
}

// Deps bundles the collaborators the HTTP layer needs.
type Deps struct {
	Jobs    repository.JobRepository
	Tenants repository.TenantRepository
	// Ping, if set, backs GET /health with a liveness check against the
	// coordination store.
	Ping func() error
}

// New builds the fiber app with every route registered.
func New(cfg Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    cfg.BodyLimitBytes,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
	}))

	a := &api{jobs: deps.Jobs, tenants: deps.Tenants, cfg: cfg, ping: deps.Ping}

	app.Get("/health", a.health)

	v1 := app.Group("/v1")
	v1.Use(apiKeyAuth(deps.Tenants))
	v1.Post("/images/generate", a.createJob)
	v1.Get("/jobs/:jobId", a.getJob)
	v1.Get("/jobs", a.listJobs)
	v1.Delete("/jobs/:jobId", a.cancelJob)

	return app
}
