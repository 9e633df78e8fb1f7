package executor

import (
	"context"
	"testing"
	"time"

	"github.com/imagegate/gateway/internal/blobstore"
	"github.com/imagegate/gateway/internal/cache"
	"github.com/imagegate/gateway/internal/credential"
	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/provider"
	"github.com/imagegate/gateway/internal/repository"
	"github.com/imagegate/gateway/internal/webhook"
)

type harness struct {
	executor *Executor
	jobs     *repository.MemoryJobRepository
	tenants  *repository.MemoryTenantRepository
	creds    *repository.MemoryCredentialRepository
	lim      *limiter.MemoryLimiter
	health   *credential.MemoryHealth
	cache    *cache.MemoryCache
	provider *provider.MemoryProvider
	blobs    *blobstore.MemoryStore
	webhooks *webhook.MemoryDeliverer
}

func newHarness(outcomes ...provider.Outcome) *harness {
	h := &harness{
		jobs:     repository.NewMemoryJobRepository(),
		tenants:  repository.NewMemoryTenantRepository(),
		creds:    repository.NewMemoryCredentialRepository(),
		lim:      limiter.NewMemoryLimiter(),
		health:   credential.NewMemoryHealth(credential.DefaultTunables()),
		cache:    cache.NewMemoryCache(),
		provider: provider.NewMemoryProvider(outcomes...),
		blobs:    blobstore.NewMemoryStore(),
		webhooks: webhook.NewMemoryDeliverer(),
	}

	scheduler := credential.NewScheduler(h.creds, h.health, h.lim)

	cfg := DefaultConfig()
	cfg.GlobalRPM = 1000
	cfg.GlobalConcurrency = 1000

	h.executor = New(cfg, Deps{
		Limiter:   h.lim,
		Health:    h.health,
		Scheduler: scheduler,
		Cache:     h.cache,
		Provider:  h.provider,
		Blobs:     h.blobs,
		Jobs:      h.jobs,
		Tenants:   h.tenants,
		Webhooks:  h.webhooks,
	})
	return h
}

func (h *harness) putTenant(id string, rpm, conc int, webhookURL string) *models.Tenant {
	t := &models.Tenant{ID: id, PlanRPM: rpm, PlanConcurrency: conc, WebhookURL: webhookURL, Enabled: true}
	h.tenants.Put(t)
	return t
}

func (h *harness) putCredential(id string, rpm, conc, priority int) *models.Credential {
	c := &models.Credential{
		ID: id, Provider: "gemini", Endpoint: "primary",
		RPMLimit: rpm, ConcurrencyLimit: conc, Priority: priority, Enabled: true,
	}
	h.creds.Put(c)
	return c
}

func newQueuedJob(tenantID string) *models.Job {
	return &models.Job{
		ID:          "job-1",
		TenantID:    tenantID,
		Status:      models.JobQueued,
		Mode:        models.ModeFinal,
		Prompt:      "a watercolor fox sitting in a meadow at dawn",
		Resolution:  "1024x1024",
		AspectRatio: "1:1",
		SampleCount: 1,
		MaxAttempts: 4,
	}
}

func TestRun_HappyPathUploadsAndSucceeds(t *testing.T) {
	h := newHarness(provider.Outcome{
		Output: &provider.GenerateOutput{
			Images:       []provider.Image{{URL: "data:image/png;base64,aGVsbG8=", Mime: "image/png"}},
			ModelUsed:    "gemini-2.5-flash-image",
			EndpointUsed: "primary",
		},
	})
	h.putTenant("tenant-1", 100, 10, "https://tenant.example.com/hook")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	stored, _, err := h.jobs.FindOrCreate(context.Background(), job)
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	if err := h.executor.Run(context.Background(), stored.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := h.jobs.Get(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.JobSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", got.Status)
	}
	if len(got.ResultURLs) != 1 {
		t.Fatalf("result urls = %v, want 1 entry", got.ResultURLs)
	}
	if len(h.webhooks.Delivered) != 1 {
		t.Fatalf("delivered webhooks = %d, want 1", len(h.webhooks.Delivered))
	}
	if h.webhooks.Delivered[0].Status != "SUCCEEDED" {
		t.Fatalf("webhook status = %s, want SUCCEEDED", h.webhooks.Delivered[0].Status)
	}
}

func TestRun_RetryableProviderErrorMovesToRetrying(t *testing.T) {
	h := newHarness(provider.Outcome{
		Err: &models.JobError{Code: "SERVICE_OVERLOAD", Message: "upstream overloaded", Retryable: true},
	})
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	if err := h.executor.Run(context.Background(), stored.ID); err == nil {
		t.Fatal("Run: want error, got nil")
	}

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobRetrying {
		t.Fatalf("status = %s, want RETRYING", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.Attempts)
	}
	if got.LastErrorCode != "SERVICE_OVERLOAD" {
		t.Fatalf("last error code = %s, want SERVICE_OVERLOAD", got.LastErrorCode)
	}
}

func TestRun_NonRetryableProviderErrorFailsImmediately(t *testing.T) {
	h := newHarness(provider.Outcome{
		Err: &models.JobError{Code: "INVALID_REQUEST", Message: "bad prompt", Retryable: false},
	})
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	_ = h.executor.Run(context.Background(), stored.ID)

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
}

func TestRun_ExhaustedAttemptsFailsInsteadOfRetrying(t *testing.T) {
	h := newHarness(provider.Outcome{
		Err: &models.JobError{Code: "SERVER_ERROR", Message: "internal error", Retryable: true},
	})
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	job.Attempts = 3
	job.MaxAttempts = 4
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	_ = h.executor.Run(context.Background(), stored.ID)

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
	if got.Attempts != 4 {
		t.Fatalf("attempts = %d, want 4", got.Attempts)
	}
}

func TestRun_NonRetryableProviderErrorRecordsOneFailure(t *testing.T) {
	h := newHarness(provider.Outcome{
		Err: &models.JobError{Code: "INVALID_REQUEST", Message: "bad prompt", Retryable: false},
	})
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	_ = h.executor.Run(context.Background(), stored.ID)

	if got := h.health.FailureCount("cred-1"); got != 1 {
		t.Fatalf("failure count = %d, want 1 (a terminal failure must count exactly once)", got)
	}
}

func TestRun_ExhaustedAttemptsRecordsOneFailure(t *testing.T) {
	h := newHarness(provider.Outcome{
		Err: &models.JobError{Code: "SERVER_ERROR", Message: "internal error", Retryable: true},
	})
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	job.Attempts = 3
	job.MaxAttempts = 4
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	_ = h.executor.Run(context.Background(), stored.ID)

	if got := h.health.FailureCount("cred-1"); got != 1 {
		t.Fatalf("failure count = %d, want 1 (exhausted-attempt failure must count exactly once)", got)
	}
}

func TestRun_NoCredentialAvailableLeavesJobQueued(t *testing.T) {
	h := newHarness()
	h.putTenant("tenant-1", 100, 10, "")
	// No credentials registered at all.

	job := newQueuedJob("tenant-1")
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	err := h.executor.Run(context.Background(), stored.ID)
	if err == nil {
		t.Fatal("Run: want error, got nil")
	}
	jobErr, ok := err.(*models.JobError)
	if !ok || jobErr.Code != "NO_PROVIDER_KEY_AVAILABLE" {
		t.Fatalf("err = %v, want NO_PROVIDER_KEY_AVAILABLE", err)
	}

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobQueued {
		t.Fatalf("status = %s, want unchanged QUEUED", got.Status)
	}
}

func TestRun_GlobalConcurrencyDenialLeavesJobQueued(t *testing.T) {
	h := newHarness()
	h.executor.cfg.GlobalConcurrency = 1
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	// Occupy the single global concurrency slot directly.
	if _, err := h.lim.AdmitConcurrency(context.Background(), limiter.GlobalConcurrencyKey(), 1, time.Minute); err != nil {
		t.Fatalf("AdmitConcurrency: %v", err)
	}

	job := newQueuedJob("tenant-1")
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	err := h.executor.Run(context.Background(), stored.ID)
	if err == nil {
		t.Fatal("Run: want error, got nil")
	}

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobQueued {
		t.Fatalf("status = %s, want unchanged QUEUED", got.Status)
	}
}

func TestRun_CancelledJobIsSkipped(t *testing.T) {
	h := newHarness()
	h.putTenant("tenant-1", 100, 10, "")

	job := newQueuedJob("tenant-1")
	job.Status = models.JobCanceled
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	if err := h.executor.Run(context.Background(), stored.ID); err != nil {
		t.Fatalf("Run: want nil for canceled job, got %v", err)
	}
}

func TestRun_CacheHitSkipsProviderCall(t *testing.T) {
	h := newHarness() // no outcomes queued; a provider call would panic-free but error
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)

	job := newQueuedJob("tenant-1")
	fingerprint := cache.Fingerprint(job.Prompt, h.executor.cfg.DefaultModel, job.Resolution, job.AspectRatio, job.SampleCount)
	if err := h.cache.Store(context.Background(), fingerprint, cache.Result{
		URLs:         []string{"https://cdn.example.com/cached.png"},
		ModelUsed:    "gemini-2.5-flash-image",
		EndpointUsed: "primary",
	}, time.Hour); err != nil {
		t.Fatalf("Store: %v", err)
	}

	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	if err := h.executor.Run(context.Background(), stored.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", got.Status)
	}
	if len(got.ResultURLs) != 1 || got.ResultURLs[0] != "https://cdn.example.com/cached.png" {
		t.Fatalf("result urls = %v, want cached url", got.ResultURLs)
	}
	if len(h.provider.Calls) != 0 {
		t.Fatalf("provider calls = %d, want 0 on cache hit", len(h.provider.Calls))
	}
}

func TestRun_BlobUploadFailureRetriesAsStorageError(t *testing.T) {
	h := newHarness(provider.Outcome{
		Output: &provider.GenerateOutput{
			Images:    []provider.Image{{URL: "data:image/png;base64,aGVsbG8=", Mime: "image/png"}},
			ModelUsed: "gemini-2.5-flash-image",
		},
	})
	h.putTenant("tenant-1", 100, 10, "")
	h.putCredential("cred-1", 100, 10, 1)
	h.blobs.FailNext = true

	job := newQueuedJob("tenant-1")
	stored, _, _ := h.jobs.FindOrCreate(context.Background(), job)

	_ = h.executor.Run(context.Background(), stored.ID)

	got, _ := h.jobs.Get(context.Background(), stored.ID)
	if got.Status != models.JobRetrying {
		t.Fatalf("status = %s, want RETRYING (STORAGE_ERROR is retryable)", got.Status)
	}
	if got.LastErrorCode != "STORAGE_ERROR" {
		t.Fatalf("last error code = %s, want STORAGE_ERROR", got.LastErrorCode)
	}
}
