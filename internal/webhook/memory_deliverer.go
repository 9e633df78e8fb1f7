package webhook

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDeliverer is an in-memory Deliverer fake for executor pipeline
// tests. FailCount lets a test force the first N attempts to fail before
// succeeding, or make every attempt fail by setting it >= MaxAttempts.
type MemoryDeliverer struct {
	mu          sync.Mutex
	Delivered   []Event
	FailCount   int
	attempts    int
}

func NewMemoryDeliverer() *MemoryDeliverer {
	return &MemoryDeliverer{}
}

func (d *MemoryDeliverer) Deliver(_ context.Context, _ Target, event Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts++
	if d.attempts <= d.FailCount {
		return fmt.Errorf("webhook: simulated delivery failure (attempt %d)", d.attempts)
	}
	d.Delivered = append(d.Delivered, event)
	return nil
}
