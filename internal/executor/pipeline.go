package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imagegate/gateway/internal/blobstore"
	"github.com/imagegate/gateway/internal/cache"
	"github.com/imagegate/gateway/internal/credential"
	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/metrics"
	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/provider"
	"github.com/imagegate/gateway/internal/webhook"
)

// Run pulls one job through the full pipeline: admission, credential
// selection, cache consult, provider call, blob upload, and webhook
// enqueue. An admission denial (global, credential, or tenant scope) or
// finding no credential available leaves the job row untouched in
// QUEUED/RETRYING — it is a capacity deferral, not a job failure, and the
// worker pool's next ListRunnable poll redrives it without consuming an
// attempt. Every failure once the job is RUNNING (provider error, storage
// error) is a real job outcome and advances the state machine accordingly.
func (e *Executor) Run(ctx context.Context, jobID string) error {
	runStart := time.Now()
	defer func() { metrics.JobDurationSeconds.Observe(time.Since(runStart).Seconds()) }()

	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("executor: load job %s: %w", jobID, err)
	}
	if job.Status == models.JobCanceled {
		return nil
	}

	tenant, err := e.tenants.Get(ctx, job.TenantID)
	if err != nil {
		return fmt.Errorf("executor: load tenant %s: %w", job.TenantID, err)
	}

	scope := newAdmissionScope(ctx, e.limiter)
	defer scope.releaseAll()

	if denied, jobErr := e.admitRPM(ctx, limiter.GlobalRPMKey(), e.cfg.GlobalRPM, "global_rpm", "GLOBAL_RATE_LIMIT"); denied {
		return jobErr
	}
	if denied, jobErr := e.admitConcurrency(ctx, scope, limiter.GlobalConcurrencyKey(), e.cfg.GlobalConcurrency, "global_conc", "GLOBAL_CONC_LIMIT"); denied {
		return jobErr
	}

	cred, err := e.scheduler.Pick(ctx, credential.SelectionInput{
		Provider:      e.cfg.ProviderName,
		Model:         e.cfg.DefaultModel,
		AllowFallback: e.cfg.AllowEndpointFallback,
	})
	if err != nil {
		metrics.SchedulerNoCredentialTotal.Inc()
		return jobError("NO_PROVIDER_KEY_AVAILABLE", "no provider credential is currently available")
	}
	metrics.SchedulerPicksTotal.WithLabelValues(cred.ID).Inc()

	if denied, jobErr := e.admitRPM(ctx, limiter.CredentialRPMKey(cred.ID), cred.RPMLimit, "key_rpm", "KEY_RATE_LIMIT"); denied {
		return jobErr
	}
	if denied, jobErr := e.admitConcurrency(ctx, scope, limiter.CredentialConcurrencyKey(cred.ID), cred.ConcurrencyLimit, "key_conc", "KEY_CONC_LIMIT"); denied {
		return jobErr
	}
	if denied, jobErr := e.admitRPM(ctx, limiter.TenantRPMKey(tenant.ID), tenant.PlanRPM, "tenant_rpm", "TENANT_RATE_LIMIT"); denied {
		return jobErr
	}
	if denied, jobErr := e.admitConcurrency(ctx, scope, limiter.TenantConcurrencyKey(tenant.ID), tenant.PlanConcurrency, "tenant_conc", "TENANT_CONC_LIMIT"); denied {
		return jobErr
	}

	if err := e.jobs.CompareAndSwapStatus(ctx, job.ID, job.Status, models.JobRunning, func(j *models.Job) {
		j.CredentialID = cred.ID
	}); err != nil {
		return fmt.Errorf("executor: transition %s to RUNNING: %w", job.ID, err)
	}
	job.Status = models.JobRunning
	job.CredentialID = cred.ID

	cacheEligible := job.Mode == models.ModeFinal && len(job.Prompt) >= 10
	var fingerprint string
	if cacheEligible {
		fingerprint = cache.Fingerprint(job.Prompt, e.cfg.DefaultModel, job.Resolution, job.AspectRatio, job.SampleCount)
		if hit, ok, err := e.cache.Lookup(ctx, fingerprint); err == nil && ok {
			metrics.CacheHitsTotal.Inc()
			return e.finishWithCacheHit(ctx, job, tenant, hit)
		} else if err == nil {
			metrics.CacheMissesTotal.Inc()
		}
	}

	start := time.Now()
	output, genErr := e.provider.Generate(ctx, provider.GenerateInput{
		Credential:     cred,
		Prompt:         job.Prompt,
		ReferenceImage: job.ReferenceImage,
		Mode:           job.Mode,
		Resolution:     job.Resolution,
		AspectRatio:    job.AspectRatio,
		SampleCount:    job.SampleCount,
		Model:          e.cfg.DefaultModel,
		Endpoint:       cred.Endpoint,
	})
	outcomeLabel := "success"
	if genErr != nil {
		outcomeLabel = "failure"
	}
	metrics.ProviderCallDurationSeconds.WithLabelValues(cred.Endpoint, outcomeLabel).Observe(time.Since(start).Seconds())

	if genErr != nil {
		return e.handleProviderFailure(ctx, job, tenant, cred, genErr)
	}

	return e.handleProviderSuccess(ctx, job, tenant, cred, output, cacheEligible, fingerprint)
}

func (e *Executor) admitRPM(ctx context.Context, key string, limitValue int, scopeLabel, code string) (denied bool, jobErr *models.JobError) {
	decision, err := e.limiter.AdmitRPM(ctx, key, limitValue, e.cfg.RPMWindow)
	if err != nil {
		return true, jobError("UNKNOWN_ERROR", err.Error())
	}
	if !decision.Admitted {
		metrics.AdmissionDeniedTotal.WithLabelValues(scopeLabel).Inc()
		return true, jobError(code, fmt.Sprintf("%s admission denied", scopeLabel))
	}
	return false, nil
}

func (e *Executor) admitConcurrency(ctx context.Context, scope *admissionScope, key string, limitValue int, scopeLabel, code string) (denied bool, jobErr *models.JobError) {
	decision, err := e.limiter.AdmitConcurrency(ctx, key, limitValue, e.cfg.ConcurrencyTTL)
	if err != nil {
		return true, jobError("UNKNOWN_ERROR", err.Error())
	}
	if !decision.Admitted {
		metrics.AdmissionDeniedTotal.WithLabelValues(scopeLabel).Inc()
		return true, jobError(code, fmt.Sprintf("%s admission denied", scopeLabel))
	}
	scope.push(key)
	return false, nil
}

func (e *Executor) handleProviderFailure(ctx context.Context, job *models.Job, tenant *models.Tenant, cred *models.Credential, genErr error) error {
	jobErr, ok := genErr.(*models.JobError)
	if !ok {
		jobErr = jobError("UNKNOWN_ERROR", genErr.Error())
	}

	if err := e.health.RecordEndpointOutcome(ctx, e.cfg.ProviderName, cred.Endpoint, false, jobErr.Code == "SERVICE_OVERLOAD"); err != nil {
		e.log.Warn("failed to record endpoint outcome for %s/%s: %v", e.cfg.ProviderName, cred.Endpoint, err)
	}

	return e.finishWithError(ctx, job, tenant, jobErr)
}

func (e *Executor) handleProviderSuccess(ctx context.Context, job *models.Job, tenant *models.Tenant, cred *models.Credential, output *provider.GenerateOutput, cacheEligible bool, fingerprint string) error {
	if err := e.health.RecordSuccess(ctx, cred.ID); err != nil {
		e.log.Warn("failed to record credential success for %s: %v", cred.ID, err)
	}
	if err := e.health.RecordEndpointOutcome(ctx, e.cfg.ProviderName, cred.Endpoint, true, false); err != nil {
		e.log.Warn("failed to record endpoint outcome for %s/%s: %v", e.cfg.ProviderName, cred.Endpoint, err)
	}

	urls, err := e.uploadAll(ctx, job.ID, output.Images)
	if err != nil {
		return e.finishWithError(ctx, job, tenant, jobError("STORAGE_ERROR", err.Error()))
	}

	if err := e.jobs.CompareAndSwapStatus(ctx, job.ID, models.JobRunning, models.JobSucceeded, func(j *models.Job) {
		j.ModelUsed = output.ModelUsed
		j.EndpointUsed = output.EndpointUsed
	}); err != nil {
		return fmt.Errorf("executor: transition %s to SUCCEEDED: %w", job.ID, err)
	}

	if cacheEligible && len(urls) > 0 {
		if err := e.cache.Store(ctx, fingerprint, cache.Result{URLs: urls, ModelUsed: output.ModelUsed, EndpointUsed: output.EndpointUsed}, e.cfg.CacheTTL); err != nil {
			e.log.Warn("failed to write result cache for %s: %v", fingerprint, err)
		}
	}

	metrics.JobsCompletedTotal.WithLabelValues(string(models.JobSucceeded)).Inc()
	e.enqueueWebhook(ctx, job.ID, tenant, models.JobSucceeded, urls, nil)
	return nil
}

// uploadAll persists every generated image in parallel and appends each
// URL to the job row as soon as its upload finishes, so pollers see
// results arrive independent of generation order.
func (e *Executor) uploadAll(ctx context.Context, jobID string, images []provider.Image) ([]string, error) {
	type result struct {
		url string
		err error
	}
	results := make([]result, len(images))

	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img provider.Image) {
			defer wg.Done()
			data, decodeErr := decodeDataURL(img.URL)
			if decodeErr != nil {
				results[i] = result{err: decodeErr}
				return
			}
			url, err := e.blobs.Put(ctx, jobID, i, blobstore.Object{Data: data, Mime: img.Mime})
			if err != nil {
				results[i] = result{err: err}
				return
			}
			if appendErr := e.jobs.AppendResultURL(ctx, jobID, url); appendErr != nil {
				results[i] = result{err: appendErr}
				return
			}
			results[i] = result{url: url}
		}(i, img)
	}
	wg.Wait()

	var urls []string
	for _, r := range results {
		if r.err != nil {
			return urls, r.err
		}
		urls = append(urls, r.url)
	}
	return urls, nil
}

func (e *Executor) finishWithCacheHit(ctx context.Context, job *models.Job, tenant *models.Tenant, hit *cache.Result) error {
	for _, url := range hit.URLs {
		if err := e.jobs.AppendResultURL(ctx, job.ID, url); err != nil {
			return fmt.Errorf("executor: append cached url for %s: %w", job.ID, err)
		}
	}
	if err := e.jobs.CompareAndSwapStatus(ctx, job.ID, models.JobRunning, models.JobSucceeded, func(j *models.Job) {
		j.ModelUsed = hit.ModelUsed
		j.EndpointUsed = hit.EndpointUsed
	}); err != nil {
		return fmt.Errorf("executor: transition %s to SUCCEEDED on cache hit: %w", job.ID, err)
	}
	if job.CredentialID != "" {
		if err := e.health.RecordSuccess(ctx, job.CredentialID); err != nil {
			e.log.Warn("failed to record credential success on cache hit for %s: %v", job.CredentialID, err)
		}
	}

	metrics.JobsCompletedTotal.WithLabelValues(string(models.JobSucceeded)).Inc()
	e.enqueueWebhook(ctx, job.ID, tenant, models.JobSucceeded, hit.URLs, nil)
	return nil
}

// finishWithError classifies the failure, increments attempts, and either
// schedules a retry or finalizes the job as FAILED.
func (e *Executor) finishWithError(ctx context.Context, job *models.Job, tenant *models.Tenant, jobErr *models.JobError) error {
	attempts := job.Attempts + 1
	retryable := jobErr.Retryable && attempts < job.MaxAttempts

	if job.CredentialID != "" {
		if _, _, err := e.health.RecordFailure(ctx, job.CredentialID); err != nil {
			e.log.Warn("failed to record credential failure for %s: %v", job.CredentialID, err)
		}
	}

	if retryable {
		if err := e.jobs.CompareAndSwapStatus(ctx, job.ID, job.Status, models.JobRetrying, func(j *models.Job) {
			j.Attempts = attempts
			j.LastErrorCode = jobErr.Code
			j.LastErrorMessage = jobErr.Message
			j.NextAttemptAt = time.Now().Add(models.RetryBackoff(attempts, jobErr.Code))
		}); err != nil {
			return fmt.Errorf("executor: transition %s to RETRYING: %w", job.ID, err)
		}
		metrics.JobsRetriedTotal.Inc()
		return jobErr
	}

	if err := e.jobs.CompareAndSwapStatus(ctx, job.ID, job.Status, models.JobFailed, func(j *models.Job) {
		j.Attempts = attempts
		j.LastErrorCode = jobErr.Code
		j.LastErrorMessage = jobErr.Message
	}); err != nil {
		return fmt.Errorf("executor: transition %s to FAILED: %w", job.ID, err)
	}

	metrics.JobsCompletedTotal.WithLabelValues(string(models.JobFailed)).Inc()
	e.enqueueWebhook(ctx, job.ID, tenant, models.JobFailed, nil, jobErr)
	return jobErr
}

// enqueueWebhook delivers synchronously from the worker's perspective:
// the executor calls the deliverer directly rather than pushing to a
// separate queue, since the deliverer already owns its own bounded retry
// loop (internal/webhook).
func (e *Executor) enqueueWebhook(ctx context.Context, jobID string, tenant *models.Tenant, status models.JobStatus, urls []string, jobErr *models.JobError) {
	if tenant.WebhookURL == "" {
		return
	}

	event := webhook.Event{
		EventID:    uuid.NewString(),
		JobID:      jobID,
		TenantID:   tenant.ID,
		Status:     string(status),
		ResultURLs: urls,
		Timestamp:  time.Now().UnixMilli(),
	}
	if jobErr != nil {
		event.ErrorCode = jobErr.Code
		event.ErrorMessage = jobErr.Message
	}

	target := webhook.Target{URL: tenant.WebhookURL, Secret: tenant.WebhookSecret}
	if err := e.webhooks.Deliver(ctx, target, event); err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("exhausted").Inc()
		e.log.Warn("webhook delivery exhausted for job %s: %v", jobID, err)
		return
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
}

func decodeDataURL(raw string) ([]byte, error) {
	_, data, err := provider.DecodeDataURL(raw)
	return data, err
}
