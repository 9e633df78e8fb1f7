package models

import "time"

// JobStatus is the job state machine's state.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobRetrying  JobStatus = "RETRYING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
	JobCanceled  JobStatus = "CANCELED"
)

// IsTerminal reports whether a job in this status will never transition
// again (result_urls become immutable except for metadata timestamps).
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCanceled:
		return true
	default:
		return false
	}
}

// validTransitions enumerates every allowed (from, to) edge of the job
// state machine. CANCELED is reachable only from QUEUED or RETRYING,
// RUNNING only from QUEUED/RETRYING, and the machine never goes backwards
// from a terminal state.
var validTransitions = map[JobStatus]map[JobStatus]bool{
	JobQueued: {
		JobRunning:  true,
		JobCanceled: true,
	},
	JobRetrying: {
		JobRunning:  true,
		JobCanceled: true,
	},
	JobRunning: {
		JobSucceeded: true,
		JobFailed:    true,
		JobRetrying:  true,
	},
}

// ValidTransition reports whether moving a job row from `from` to `to` is
// permitted. Used by the repository's compare-and-swap update so two
// workers racing on the same row can't both win.
func ValidTransition(from, to JobStatus) bool {
	if from == to {
		return true
	}
	edges, ok := validTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Mode is the job's draft/final distinction — it governs provider
// temperature and result-cache eligibility.
type Mode string

const (
	ModeDraft Mode = "draft"
	ModeFinal Mode = "final"
)

// JobError is a discriminated-union error value: admission and provider
// failures are first-class values, never thrown, and carry a deterministic
// code a caller can branch on.
type JobError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

// Job is the persistent record of one image-generation request.
type Job struct {
	ID               string
	TenantID         string
	IdempotencyToken string

	Status JobStatus
	Mode   Mode

	Prompt        string
	ReferenceImage string
	Resolution    string
	AspectRatio   string
	SampleCount   int

	Attempts     int
	MaxAttempts  int
	LastErrorCode    string
	LastErrorMessage string

	CredentialID string
	ModelUsed    string
	EndpointUsed string

	ResultURLs []string

	// NextAttemptAt gates when a RETRYING job becomes runnable again — the
	// queue-layer exponential backoff. Zero for QUEUED jobs, which are
	// always immediately runnable.
	NextAttemptAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RetryBackoff computes the exponential backoff delay before a job may be
// retried: base 2s, doubling per attempt (2s, 4s, 8s, ...), capped at 60s,
// which the doubling reaches on the sixth attempt. A SERVICE_OVERLOAD
// failure always waits the full 60s, whatever the attempt count.
func RetryBackoff(attempts int, code string) time.Duration {
	const base = 2 * time.Second
	const backoffCap = 60 * time.Second

	if attempts < 1 {
		attempts = 1
	}
	delay := base << (attempts - 1)
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	if code == "SERVICE_OVERLOAD" && delay < backoffCap {
		delay = backoffCap
	}
	return delay
}

// AppendResultURL appends to the append-only result list. Callers are
// expected to persist the mutated job through the repository, which
// enforces the same append-only rule at the storage layer.
func (j *Job) AppendResultURL(url string) {
	j.ResultURLs = append(j.ResultURLs, url)
}
