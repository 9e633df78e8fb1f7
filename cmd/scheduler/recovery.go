package main

import (
	"context"
	"fmt"
	"time"

	"github.com/imagegate/gateway/internal/metrics"
	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/repository"
)

// recoverStuckJobs finds RUNNING jobs whose worker never reached a
// terminal status within staleAfter and puts them back into the state
// machine: RETRYING if they still have attempts left, FAILED otherwise.
// Grounded on the teacher's recoverStuckJobs heartbeat scan, adapted from
// "running:workerID" hash keys to the job row's own UpdatedAt column
// since this system tracks no per-worker heartbeat.
func recoverStuckJobs(ctx context.Context, jobs repository.JobRepository, staleAfter time.Duration) {
	stale, err := jobs.ListStaleRunning(ctx, staleAfter, 200)
	if err != nil {
		fmt.Println("Error scanning for stuck jobs:", err)
		return
	}
	if len(stale) == 0 {
		fmt.Println("No stuck jobs found")
		return
	}

	recovered := 0
	for _, job := range stale {
		attempts := job.Attempts + 1
		target := models.JobRetrying
		if attempts >= job.MaxAttempts {
			target = models.JobFailed
		}

		err := jobs.CompareAndSwapStatus(ctx, job.ID, models.JobRunning, target, func(j *models.Job) {
			j.Attempts = attempts
			j.LastErrorCode = "WORKER_LOST"
			j.LastErrorMessage = "worker did not report a terminal status before the stale timeout"
			if target == models.JobRetrying {
				j.NextAttemptAt = time.Now().Add(models.RetryBackoff(attempts, j.LastErrorCode))
			}
		})
		if err != nil {
			if _, ok := err.(*repository.ErrStatusMismatch); ok {
				// Someone already moved it on; nothing to recover.
				continue
			}
			fmt.Printf("  failed to recover job %s: %v\n", job.ID, err)
			continue
		}

		if target == models.JobRetrying {
			metrics.JobsRetriedTotal.Inc()
		} else {
			metrics.JobsCompletedTotal.WithLabelValues(string(models.JobFailed)).Inc()
		}
		fmt.Printf("  recovered job %s -> %s\n", job.ID, target)
		recovered++
	}

	if recovered > 0 {
		fmt.Printf("Recovery complete: %d jobs recovered\n", recovered)
	} else {
		fmt.Println("No stuck jobs needed recovery")
	}
}
