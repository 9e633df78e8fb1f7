package executor

import (
	"context"

	"github.com/imagegate/gateway/internal/limiter"
	"github.com/imagegate/gateway/internal/metrics"
)

// admissionScope accumulates concurrency-release callbacks in acquisition
// order and unwinds them in reverse on every exit path, guaranteeing every
// admitted token is released regardless of where the pipeline stops.
// Sliding-window RPM admissions need no release; only the three
// concurrency tokens (global, credential, tenant) are tracked here.
type admissionScope struct {
	ctx      context.Context
	limiter  limiter.Limiter
	releases []func()
}

func newAdmissionScope(ctx context.Context, lim limiter.Limiter) *admissionScope {
	return &admissionScope{ctx: ctx, limiter: lim}
}

func (s *admissionScope) releaseAll() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
}

func (s *admissionScope) push(key string) {
	s.releases = append(s.releases, func() {
		if err := s.limiter.ReleaseConcurrency(s.ctx, key); err != nil {
			metrics.AdmissionDeniedTotal.WithLabelValues("release_error").Inc()
		}
	})
}
