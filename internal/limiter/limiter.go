// Package limiter implements two atomic admission primitives: a
// sliding-window RPM limiter and a bounded-concurrency limiter, both
// realized as single atomic operations against the coordination store so
// that many worker processes can share them safely.
package limiter

import (
	"context"
	"time"
)

// Decision is the result of an admission attempt.
type Decision struct {
	Admitted bool
	// Count is the sliding-window occupancy after the attempt (RPM) or the
	// counter value after the attempt (concurrency).
	Count int
}

// Limiter is the capability interface admitted by both the real
// Redis-backed implementation and an in-memory fake used in tests.
type Limiter interface {
	// AdmitRPM runs the sliding-window admit primitive against key: trims
	// entries older than window, admits iff the remaining count is below
	// limit, then records the new timestamp.
	AdmitRPM(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)

	// AdmitConcurrency atomically increments the counter at key; if the
	// post-increment value exceeds limit it decrements back and denies.
	// ttl bounds the counter's lifetime so a crashed worker's token
	// self-heals.
	AdmitConcurrency(ctx context.Context, key string, limit int, ttl time.Duration) (Decision, error)

	// ReleaseConcurrency decrements the counter at key, clamping at zero.
	ReleaseConcurrency(ctx context.Context, key string) error

	// PeekConcurrency reads the current counter value at key without
	// mutating it, used by the credential scheduler to skip saturated
	// candidates before attempting admission.
	PeekConcurrency(ctx context.Context, key string) (int, error)
}
