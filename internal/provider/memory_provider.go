package provider

import (
	"context"
	"sync"

	"github.com/imagegate/gateway/internal/models"
)

// MemoryProvider is an in-memory Provider fake for executor pipeline tests.
// Outcomes is a queue consumed one-per-call; once exhausted the last entry
// repeats.
type MemoryProvider struct {
	mu       sync.Mutex
	Outcomes []Outcome
	calls    int
	Calls    []GenerateInput
}

// Outcome is either a successful output or a job error, queued for one
// Generate call.
type Outcome struct {
	Output *GenerateOutput
	Err    *models.JobError
}

func NewMemoryProvider(outcomes ...Outcome) *MemoryProvider {
	return &MemoryProvider{Outcomes: outcomes}
}

func (p *MemoryProvider) Generate(_ context.Context, in GenerateInput) (*GenerateOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, in)

	idx := p.calls
	if idx >= len(p.Outcomes) {
		idx = len(p.Outcomes) - 1
	}
	p.calls++

	if idx < 0 {
		return nil, &models.JobError{Code: "NO_IMAGES", Message: "no outcomes configured", Retryable: false}
	}

	outcome := p.Outcomes[idx]
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	return outcome.Output, nil
}
