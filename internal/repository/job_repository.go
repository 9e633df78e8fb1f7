// Package repository defines the JobRepository, TenantRepository, and
// CredentialRepository contracts, plus a GORM/Postgres-backed
// implementation of each and an in-memory fake of each for tests.
package repository

import (
	"context"
	"time"

	"github.com/imagegate/gateway/internal/models"
)

// JobRepository owns job rows: creation with idempotency-token dedup,
// compare-and-swap status transitions, and progressive result-URL
// appends.
type JobRepository interface {
	// FindOrCreate inserts job if no row exists yet for
	// (job.TenantID, job.IdempotencyToken) — or, when IdempotencyToken is
	// empty, unconditionally inserts a new row. Returns the row that
	// should be treated as canonical (the existing one on a duplicate) and
	// whether this call created it.
	FindOrCreate(ctx context.Context, job *models.Job) (*models.Job, bool, error)

	Get(ctx context.Context, id string) (*models.Job, error)

	// CompareAndSwapStatus applies mutate to the row and persists it only
	// if the row's current status equals from, so status monotonicity
	// holds regardless of which worker wins a race.
	CompareAndSwapStatus(ctx context.Context, id string, from, to models.JobStatus, mutate func(*models.Job)) error

	// AppendResultURL appends url to the job's result list; it never
	// truncates or reorders existing entries.
	AppendResultURL(ctx context.Context, id string, url string) error

	// List returns jobs for tenantID, optionally filtered by status,
	// newest first, paginated by opaque cursor.
	List(ctx context.Context, tenantID string, status models.JobStatus, limit int, cursor string) (jobs []*models.Job, nextCursor string, hasMore bool, err error)

	// ListRunnable returns up to limit jobs across every tenant that are
	// QUEUED or RETRYING, oldest first, for the worker pool's poll loop.
	ListRunnable(ctx context.Context, limit int) ([]*models.Job, error)

	// ListStaleRunning returns up to limit RUNNING jobs whose UpdatedAt is
	// older than olderThan — a worker claimed them and never reached a
	// terminal status, most likely because it crashed mid-run. Used by the
	// recovery sweep in place of the per-worker heartbeat keys a
	// Redis-queue design would use, since RUNNING rows here have no
	// heartbeat of their own beyond UpdatedAt.
	ListStaleRunning(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Job, error)
}

// ErrNotFound is returned by Get/List lookups that find nothing.
type ErrNotFound struct{ Kind, ID string }

func (e *ErrNotFound) Error() string {
	return e.Kind + " not found: " + e.ID
}

// ErrStatusMismatch is returned by CompareAndSwapStatus when the row's
// current status does not match the expected `from` status — another
// worker already moved it.
type ErrStatusMismatch struct {
	ID      string
	Wanted  models.JobStatus
	Current models.JobStatus
}

func (e *ErrStatusMismatch) Error() string {
	return "job " + e.ID + ": expected status " + string(e.Wanted) + " but found " + string(e.Current)
}

// ErrInvalidTransition is returned when from->to is not a legal edge of
// the job state machine.
type ErrInvalidTransition struct {
	ID   string
	From models.JobStatus
	To   models.JobStatus
}

func (e *ErrInvalidTransition) Error() string {
	return "job " + e.ID + ": illegal transition " + string(e.From) + " -> " + string(e.To)
}
