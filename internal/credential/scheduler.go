package credential

import (
	"context"
	"fmt"
	"sort"

	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/repository"
)

// SelectionInput is the scheduler's input.
type SelectionInput struct {
	Provider          string
	PreferredEndpoint string
	Model             string
	ExcludeEndpoints  map[string]bool
	AllowFallback     bool
}

// ErrNoCredentialAvailable is returned when every enabled credential for
// the provider is in cooldown or saturated.
var ErrNoCredentialAvailable = fmt.Errorf("no provider credential available")

// candidate is a surviving credential annotated with its ordering keys.
type candidate struct {
	credential        *models.Credential
	isModelPreferred  bool
	isEndpointPreferred bool
	healthScore       float64
	inFlight          int
	failureRate       float64
	insertionIndex    int
}

// Scheduler picks a credential for a job.
type Scheduler struct {
	credentials repository.CredentialRepository
	health      Health
	limiter     limiter.Limiter
}

func NewScheduler(credentials repository.CredentialRepository, health Health, lim limiter.Limiter) *Scheduler {
	return &Scheduler{credentials: credentials, health: health, limiter: lim}
}

// Pick runs the deterministic selection algorithm and returns the winning
// credential, or ErrNoCredentialAvailable.
func (s *Scheduler) Pick(ctx context.Context, in SelectionInput) (*models.Credential, error) {
	all, err := s.credentials.ListEnabledByProvider(ctx, in.Provider)
	if err != nil {
		return nil, fmt.Errorf("scheduler: list credentials for %s: %w", in.Provider, err)
	}

	var candidates []candidate
	for idx, c := range all {
		if in.ExcludeEndpoints != nil && in.ExcludeEndpoints[c.Endpoint] {
			continue
		}
		if !in.AllowFallback && in.PreferredEndpoint != "" && c.Endpoint != in.PreferredEndpoint {
			continue
		}

		available, _, err := s.health.CheckAvailable(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("scheduler: health check failed for %s: %w", c.ID, err)
		}
		if !available {
			continue
		}

		inFlight, err := s.limiter.PeekConcurrency(ctx, limiter.CredentialConcurrencyKey(c.ID))
		if err != nil {
			return nil, fmt.Errorf("scheduler: in-flight peek failed for %s: %w", c.ID, err)
		}
		if inFlight >= c.ConcurrencyLimit {
			continue
		}

		healthScore, err := s.health.EndpointHealthScore(ctx, c.Provider, c.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("scheduler: health score failed for %s/%s: %w", c.Provider, c.Endpoint, err)
		}
		failureRate, err := s.health.EndpointFailureRate(ctx, c.Provider, c.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("scheduler: failure rate failed for %s/%s: %w", c.Provider, c.Endpoint, err)
		}

		candidates = append(candidates, candidate{
			credential:          c,
			isModelPreferred:    in.Model != "" && containsString(c.PreferredModels, in.Model),
			isEndpointPreferred: in.PreferredEndpoint != "" && c.Endpoint == in.PreferredEndpoint,
			healthScore:         healthScore,
			inFlight:            inFlight,
			failureRate:         failureRate,
			insertionIndex:      idx,
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNoCredentialAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		if a.isModelPreferred != b.isModelPreferred {
			return a.isModelPreferred
		}
		if a.isEndpointPreferred != b.isEndpointPreferred {
			return a.isEndpointPreferred
		}
		if a.credential.Priority != b.credential.Priority {
			return a.credential.Priority < b.credential.Priority
		}
		// health_score only breaks ties when the gap exceeds 10.
		if diff := a.healthScore - b.healthScore; diff > 10 || diff < -10 {
			return a.healthScore > b.healthScore
		}
		if a.inFlight != b.inFlight {
			return a.inFlight < b.inFlight
		}
		if a.failureRate != b.failureRate {
			return a.failureRate < b.failureRate
		}
		// Deterministic tie-break: credential-row creation order.
		return a.insertionIndex < b.insertionIndex
	})

	return candidates[0].credential, nil
}

func containsString(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
