package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imagegate/gateway/internal/blobstore"
	"github.com/imagegate/gateway/internal/cache"
	"github.com/imagegate/gateway/internal/config"
	"github.com/imagegate/gateway/internal/coordination"
	"github.com/imagegate/gateway/internal/credential"
	"github.com/imagegate/gateway/internal/executor"
	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/metrics"
	"github.com/imagegate/gateway/internal/provider"
	"github.com/imagegate/gateway/internal/repository"
	"github.com/imagegate/gateway/internal/webhook"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	metrics.Register()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		fmt.Println("Metrics server started on :2113/metrics")
		if err := http.ListenAndServe(":2113", nil); err != nil {
			fmt.Printf("Failed to start metrics server: %v\n", err)
		}
	}()

	store, err := coordination.New(cfg.RedisAddr, cfg.RedisPoolSize)
	if err != nil {
		fmt.Println("Failed to connect to coordination store:", err)
		return
	}
	defer store.Close()
	rdb := store.Client()

	db, err := repository.Connect(cfg.PostgresDSN)
	if err != nil {
		fmt.Println("Failed to connect to Postgres:", err)
		return
	}

	jobs := repository.NewGormJobRepository(db)
	tenants := repository.NewGormTenantRepository(db)
	creds := repository.NewGormCredentialRepository(db)

	lim := limiter.NewRedisLimiter(rdb)
	health := credential.NewRedisHealth(rdb, credential.DefaultTunables())
	scheduler := credential.NewScheduler(creds, health, lim)

	blobs, err := blobstore.NewFilesystemStore("./data/blobs", "http://localhost:8080/blobs")
	if err != nil {
		fmt.Println("Failed to open blob store:", err)
		return
	}

	execCfg := executor.DefaultConfig()
	execCfg.GlobalRPM = cfg.GlobalRPM
	execCfg.GlobalConcurrency = cfg.GlobalConcurrency
	execCfg.MaxAttempts = cfg.MaxAttempts
	execCfg.CacheTTL = cfg.CacheTTL
	execCfg.AllowEndpointFallback = cfg.AllowEndpointFallback

	exec := executor.New(execCfg, executor.Deps{
		Limiter:   lim,
		Health:    health,
		Scheduler: scheduler,
		Cache:     cache.NewRedisCache(rdb),
		Provider:  provider.NewGeminiClient(provider.DefaultEndpointRegistry(), cfg.ProviderTimeout, cfg.AllowEndpointFallback),
		Blobs:     blobs,
		Jobs:      jobs,
		Tenants:   tenants,
		Webhooks:  webhook.NewHTTPDeliverer(rdb),
	})

	fmt.Printf("Worker pool started with %d slots\n", cfg.WorkerPoolSize)
	fmt.Println("Waiting for jobs...")

	sem := make(chan struct{}, cfg.WorkerPoolSize)
	var wg sync.WaitGroup

	for {
		runnable, err := jobs.ListRunnable(ctx, cfg.WorkerPoolSize)
		if err != nil {
			fmt.Println("Error polling for runnable jobs:", err)
			time.Sleep(time.Second)
			continue
		}

		if len(runnable) == 0 {
			time.Sleep(time.Second)
			continue
		}

		for _, job := range runnable {
			sem <- struct{}{}
			wg.Add(1)
			go func(jobID string) {
				defer wg.Done()
				defer func() { <-sem }()

				runCtx, cancel := context.WithTimeout(ctx, cfg.JobWallClockBudget)
				defer cancel()

				if err := exec.Run(runCtx, jobID); err != nil {
					fmt.Printf("job %s not admitted this round: %v\n", jobID, err)
				}
			}(job.ID)
		}
	}
}
