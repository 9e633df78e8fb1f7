package webhook

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// HTTPDeliverer is the production Deliverer. Each call runs its own
// bounded exponential-backoff retry loop rather than re-entering a
// schedule — the executor invokes it synchronously once the job outcome
// is known, the same way the teacher's worker loop performs its own
// retry bookkeeping inline rather than bouncing through a separate
// process.
type HTTPDeliverer struct {
	httpClient *http.Client
	rdb        *redis.Client
}

func NewHTTPDeliverer(rdb *redis.Client) *HTTPDeliverer {
	return &HTTPDeliverer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rdb:        rdb,
	}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, target Target, event Event) error {
	body, err := MarshalBody(event)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal event %s: %w", event.EventID, err)
	}
	signature := Sign(body, target.Secret)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		d.recordAttempt(ctx, event.EventID, attempt)

		lastErr = d.post(ctx, target.URL, body, signature)
		if lastErr == nil {
			return nil
		}
		if attempt == MaxAttempts {
			break
		}

		select {
		case <-time.After(backoffFor(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("webhook: delivery to %s exhausted %d attempts: %w", target.URL, MaxAttempts, lastErr)
}

func (d *HTTPDeliverer) post(ctx context.Context, url string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("X-Signature", signature)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: receiver responded %s", resp.Status)
	}
	return nil
}

// recordAttempt writes the current attempt number for eventID to the
// coordination store with a one-hour TTL, best effort. It is a record
// only: Deliver does not read it back, so it does not bound attempts
// across process restarts, and it is not a durable outbox.
func (d *HTTPDeliverer) recordAttempt(ctx context.Context, eventID string, attempt int) {
	if d.rdb == nil {
		return
	}
	key := fmt.Sprintf("webhook:%s:attempts", eventID)
	pipe := d.rdb.Pipeline()
	pipe.Set(ctx, key, attempt, 0)
	pipe.Expire(ctx, key, time.Hour)
	_, _ = pipe.Exec(ctx)
}

// backoffFor returns the delay before the next attempt: exponential with
// a 2s base, extended cap to 60s on SERVICE_OVERLOAD-style exhaustion —
// here applied uniformly since the deliverer has no visibility into the
// receiver's specific failure reason beyond non-2xx/network error.
func backoffFor(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	const maxBackoff = 60 * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
