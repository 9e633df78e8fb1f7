package webhook

import "testing"

func TestVerify_RoundTrip(t *testing.T) {
	body := []byte(`{"eventId":"e1","jobId":"j1"}`)
	sig := Sign(body, "shh")
	if !Verify(body, "shh", sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerify_RejectsAlteredBody(t *testing.T) {
	body := []byte(`{"eventId":"e1","jobId":"j1"}`)
	sig := Sign(body, "shh")
	altered := []byte(`{"eventId":"e1","jobId":"j2"}`)
	if Verify(altered, "shh", sig) {
		t.Fatalf("expected signature verification to fail on altered body")
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	body := []byte(`{"eventId":"e1"}`)
	sig := Sign(body, "shh")
	if Verify(body, "different", sig) {
		t.Fatalf("expected signature verification to fail with wrong secret")
	}
}

func TestBackoffFor_CapsAtSixtySeconds(t *testing.T) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if d := backoffFor(attempt); d > 60_000_000_000 {
			t.Fatalf("attempt %d backoff %v exceeds the 60s cap", attempt, d)
		}
	}
}
