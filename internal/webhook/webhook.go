// Package webhook signs and delivers job-completion events to tenant
// callback URLs with bounded exponential retries.
package webhook

import (
	"context"
	"time"
)

// Event is one job-completion notification.
type Event struct {
	EventID    string
	JobID      string
	TenantID   string
	Status     string // "SUCCEEDED" | "FAILED"
	ResultURLs []string
	ErrorCode  string
	ErrorMessage string
	Timestamp  int64 // milliseconds
}

// Target is where and how an event is delivered.
type Target struct {
	URL    string
	Secret string
}

// Deliverer sends signed event payloads and retries on failure.
type Deliverer interface {
	Deliver(ctx context.Context, target Target, event Event) error
}

// DefaultUserAgent identifies the sender on every outbound webhook POST.
const DefaultUserAgent = "imagegate-webhooks/1.0"

// MaxAttempts bounds retries per delivery.
const MaxAttempts = 8

// BaseBackoff is the exponential backoff base between delivery attempts.
const BaseBackoff = 2 * time.Second
