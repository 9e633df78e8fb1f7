package credential

import (
	"context"
	"testing"
	"time"

	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/repository"
)

func newTestScheduler() (*Scheduler, *repository.MemoryCredentialRepository, *MemoryHealth, limiter.Limiter) {
	creds := repository.NewMemoryCredentialRepository()
	health := NewMemoryHealth(DefaultTunables())
	lim := limiter.NewMemoryLimiter()
	return NewScheduler(creds, health, lim), creds, health, lim
}

func TestScheduler_PicksLowerPriorityFirst(t *testing.T) {
	sched, creds, _, _ := newTestScheduler()
	ctx := context.Background()

	creds.Put(&models.Credential{ID: "a", Provider: "gemini", Endpoint: "primary", Priority: 5, ConcurrencyLimit: 10, Enabled: true, CreatedAt: time.Unix(1, 0)})
	creds.Put(&models.Credential{ID: "b", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true, CreatedAt: time.Unix(2, 0)})

	got, err := sched.Pick(ctx, SelectionInput{Provider: "gemini", AllowFallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "b" {
		t.Fatalf("expected credential b (lower priority), got %s", got.ID)
	}
}

func TestScheduler_TieBreaksByInsertionOrder(t *testing.T) {
	sched, creds, _, _ := newTestScheduler()
	ctx := context.Background()

	creds.Put(&models.Credential{ID: "first", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true})
	creds.Put(&models.Credential{ID: "second", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true})

	got, err := sched.Pick(ctx, SelectionInput{Provider: "gemini", AllowFallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "first" {
		t.Fatalf("expected first-inserted credential on a full tie, got %s", got.ID)
	}
}

func TestScheduler_SkipsCooldownAndSaturated(t *testing.T) {
	sched, creds, health, lim := newTestScheduler()
	ctx := context.Background()

	creds.Put(&models.Credential{ID: "cooling", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true})
	creds.Put(&models.Credential{ID: "saturated", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 1, Enabled: true})
	creds.Put(&models.Credential{ID: "healthy", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true})

	for i := 0; i < DefaultTunables().FailureThreshold; i++ {
		if _, _, err := health.RecordFailure(ctx, "cooling"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if _, err := lim.AdmitConcurrency(ctx, limiter.CredentialConcurrencyKey("saturated"), 1, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sched.Pick(ctx, SelectionInput{Provider: "gemini", AllowFallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "healthy" {
		t.Fatalf("expected the only available credential, got %s", got.ID)
	}
}

func TestScheduler_NoneAvailable(t *testing.T) {
	sched, creds, health, _ := newTestScheduler()
	ctx := context.Background()

	creds.Put(&models.Credential{ID: "only", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true})
	for i := 0; i < DefaultTunables().FailureThreshold; i++ {
		if _, _, err := health.RecordFailure(ctx, "only"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	_, err := sched.Pick(ctx, SelectionInput{Provider: "gemini", AllowFallback: true})
	if err != ErrNoCredentialAvailable {
		t.Fatalf("expected ErrNoCredentialAvailable, got %v", err)
	}
}

func TestScheduler_PreferredEndpointWithoutFallback(t *testing.T) {
	sched, creds, _, _ := newTestScheduler()
	ctx := context.Background()

	creds.Put(&models.Credential{ID: "primary-cred", Provider: "gemini", Endpoint: "primary", Priority: 1, ConcurrencyLimit: 10, Enabled: true})
	creds.Put(&models.Credential{ID: "proxy-cred", Provider: "gemini", Endpoint: "proxy-A", Priority: 1, ConcurrencyLimit: 10, Enabled: true})

	got, err := sched.Pick(ctx, SelectionInput{Provider: "gemini", PreferredEndpoint: "proxy-A", AllowFallback: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "proxy-cred" {
		t.Fatalf("expected proxy-cred when fallback disabled, got %s", got.ID)
	}
}

func TestHealth_CooldownBlocksUntilElapsed(t *testing.T) {
	tunables := DefaultTunables()
	tunables.CooldownDuration = 30 * time.Millisecond
	health := NewMemoryHealth(tunables)
	ctx := context.Background()

	for i := 0; i < tunables.FailureThreshold; i++ {
		if _, _, err := health.RecordFailure(ctx, "cred"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	available, _, err := health.CheckAvailable(ctx, "cred")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available {
		t.Fatalf("expected cooldown to block availability")
	}

	time.Sleep(40 * time.Millisecond)

	available, _, err = health.CheckAvailable(ctx, "cred")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !available {
		t.Fatalf("expected availability after cooldown elapsed")
	}
}
