package main

import (
	"context"
	"fmt"
	"time"

	"github.com/imagegate/gateway/internal/config"
	"github.com/imagegate/gateway/internal/metrics"
	"github.com/imagegate/gateway/internal/repository"
)

// sweepInterval governs how often the recovery scan runs; a job can sit
// stale for up to sweepInterval beyond staleAfter before it is recovered.
const sweepInterval = 30 * time.Second

func main() {
	ctx := context.Background()
	cfg := config.Load()

	metrics.Register()

	db, err := repository.Connect(cfg.PostgresDSN)
	if err != nil {
		fmt.Println("Failed to connect to Postgres:", err)
		return
	}
	jobs := repository.NewGormJobRepository(db)

	staleAfter := cfg.JobWallClockBudget + 30*time.Second

	fmt.Println("Scheduler started, running recovery sweep every", sweepInterval)
	for {
		fmt.Println("Running recovery scan...")
		recoverStuckJobs(ctx, jobs, staleAfter)
		time.Sleep(sweepInterval)
	}
}
