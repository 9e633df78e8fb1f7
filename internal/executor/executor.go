// Package executor runs the job pipeline: admission across six tokens,
// credential selection, cache consult, provider call, blob upload, and
// webhook enqueue, with guaranteed token release on every exit path.
package executor

import (
	"time"

	"github.com/imagegate/gateway/internal/blobstore"
	"github.com/imagegate/gateway/internal/cache"
	"github.com/imagegate/gateway/internal/credential"
	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/logging"
	"github.com/imagegate/gateway/internal/provider"
	"github.com/imagegate/gateway/internal/repository"
	"github.com/imagegate/gateway/internal/webhook"
)

// Config carries the tunables the executor needs beyond what each
// collaborator already owns.
type Config struct {
	ProviderName   string
	DefaultModel   string
	DefaultEndpoint string

	GlobalRPM         int
	GlobalConcurrency int
	RPMWindow         time.Duration
	ConcurrencyTTL    time.Duration

	MaxAttempts int
	CacheTTL    time.Duration

	AllowEndpointFallback bool
}

// DefaultConfig mirrors the production defaults named across the
// admission and retry sections.
func DefaultConfig() Config {
	return Config{
		ProviderName:    "gemini",
		DefaultModel:    "gemini-2.5-flash-image",
		DefaultEndpoint: "primary",

		GlobalRPM:         600,
		GlobalConcurrency: 200,
		RPMWindow:         time.Minute,
		ConcurrencyTTL:    5 * time.Minute,

		MaxAttempts: 4,
		CacheTTL:    24 * time.Hour,

		AllowEndpointFallback: true,
	}
}

// Executor wires every collaborator the pipeline needs.
type Executor struct {
	cfg Config
	log *logging.Logger

	limiter   limiter.Limiter
	health    credential.Health
	scheduler *credential.Scheduler

	cache    cache.Cache
	provider provider.Provider
	blobs    blobstore.BlobStore

	jobs    repository.JobRepository
	tenants repository.TenantRepository

	webhooks webhook.Deliverer
}

// Deps bundles every collaborator the executor needs, so New's signature
// stays stable as the pipeline grows.
type Deps struct {
	Limiter   limiter.Limiter
	Health    credential.Health
	Scheduler *credential.Scheduler

	Cache    cache.Cache
	Provider provider.Provider
	Blobs    blobstore.BlobStore

	Jobs    repository.JobRepository
	Tenants repository.TenantRepository

	Webhooks webhook.Deliverer
}

func New(cfg Config, deps Deps) *Executor {
	return &Executor{
		cfg:       cfg,
		log:       logging.New("executor"),
		limiter:   deps.Limiter,
		health:    deps.Health,
		scheduler: deps.Scheduler,
		cache:     deps.Cache,
		provider:  deps.Provider,
		blobs:     deps.Blobs,
		jobs:      deps.Jobs,
		tenants:   deps.Tenants,
		webhooks:  deps.Webhooks,
	}
}
