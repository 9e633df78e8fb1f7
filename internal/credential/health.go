// Package credential implements the per-credential health tracker and the
// credential scheduler.
package credential

import (
	"context"
	"fmt"
	"time"
)

// Health is the capability interface for credential health and endpoint
// rollups, with a Redis-backed production implementation and an in-memory
// fake for tests.
type Health interface {
	// CheckAvailable reports whether credentialID is currently usable
	// (not in cooldown), without mutating any counters.
	CheckAvailable(ctx context.Context, credentialID string) (available bool, cooldownUntil time.Time, err error)

	// RecordFailure increments the consecutive-failure counter; once it
	// reaches the configured threshold the credential is put into
	// cooldown and the counter is reset.
	RecordFailure(ctx context.Context, credentialID string) (available bool, cooldownUntil time.Time, err error)

	// RecordSuccess clears the consecutive-failure counter.
	RecordSuccess(ctx context.Context, credentialID string) error

	// RecordEndpointOutcome updates the per-endpoint rollups used by the
	// scheduler's health-score ordering key, plus a 5-minute 503 count
	// used only to inform, never gate, scheduling.
	RecordEndpointOutcome(ctx context.Context, provider, endpoint string, success bool, serviceOverload bool) error

	// EndpointHealthScore returns 100*successes/(successes+failures) over
	// the rollup window, defaulting to 100 when no rollups exist yet.
	EndpointHealthScore(ctx context.Context, provider, endpoint string) (float64, error)

	// EndpointFailureRate returns failures/(successes+failures) over the
	// rollup window, defaulting to 0 when no rollups exist yet. This is
	// the scheduler's last ordering key before the insertion-order
	// tie-break.
	EndpointFailureRate(ctx context.Context, provider, endpoint string) (float64, error)
}

// Tunables configures the health tracker's thresholds and TTLs.
type Tunables struct {
	FailureThreshold int
	CooldownDuration time.Duration
	FailureTTL       time.Duration
	RollupTTL        time.Duration
}

// DefaultTunables returns the production defaults.
func DefaultTunables() Tunables {
	return Tunables{
		FailureThreshold: 5,
		CooldownDuration: 10 * time.Minute,
		FailureTTL:       time.Hour,
		RollupTTL:        5 * time.Minute,
	}
}

func cooldownKey(id string) string { return fmt.Sprintf("kp:%s:cooldown_until", id) }
func failuresKey(id string) string { return fmt.Sprintf("kp:%s:failures", id) }
func successesKey(id string) string { return fmt.Sprintf("kp:%s:successes", id) }

func endpointKey(provider, endpoint, kind string) string {
	return fmt.Sprintf("ep:%s:%s:%s", provider, endpoint, kind)
}
