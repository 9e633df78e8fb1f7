package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagegate_jobs_completed_total",
			Help: "Total number of jobs reaching a terminal status",
		},
		[]string{"status"}, // SUCCEEDED, FAILED
	)

	JobsRetriedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagegate_jobs_retried_total",
			Help: "Total number of jobs transitioned to RETRYING",
		},
	)

	AdmissionDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagegate_admission_denied_total",
			Help: "Total number of admission denials by scope",
		},
		[]string{"scope"}, // global_rpm, global_conc, key_rpm, key_conc, tenant_rpm, tenant_conc
	)

	SchedulerPicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagegate_scheduler_picks_total",
			Help: "Total number of credential picks by the scheduler",
		},
		[]string{"credential_id"},
	)

	SchedulerNoCredentialTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagegate_scheduler_no_credential_total",
			Help: "Total number of scheduler picks that found no available credential",
		},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagegate_cache_hits_total",
			Help: "Total number of result-cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagegate_cache_misses_total",
			Help: "Total number of result-cache misses on eligible requests",
		},
	)

	ProviderCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagegate_provider_call_duration_seconds",
			Help:    "Upstream provider call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		},
		[]string{"endpoint", "outcome"},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagegate_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by final outcome",
		},
		[]string{"outcome"}, // delivered, exhausted
	)

	JobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imagegate_job_duration_seconds",
			Help:    "End-to-end job execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
	)
)

// Register exists for explicit initialization symmetry with the teacher's
// metrics package; registration itself happens via promauto at var-init
// time.
func Register() {}
