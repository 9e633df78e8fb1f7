package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPDeliverer_SignsAndDeliversSuccessfully(t *testing.T) {
	var gotSignature, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewHTTPDeliverer(nil)
	event := Event{EventID: "e1", JobID: "j1", TenantID: "t1", Status: "SUCCEEDED", ResultURLs: []string{"https://x/1.png"}, Timestamp: 1000}

	if err := d.Deliver(context.Background(), Target{URL: server.URL, Secret: "shh"}, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := MarshalBody(event)
	if !Verify(body, "shh", gotSignature) {
		t.Fatalf("signature did not verify against the delivered body, got signature %q body %q", gotSignature, gotBody)
	}
}

func TestHTTPDeliverer_ReturnsErrorOnPersistentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewHTTPDeliverer(nil)
	event := Event{EventID: "e2", JobID: "j2", TenantID: "t1", Status: "FAILED", Timestamp: 1000}

	// A short deadline ends Deliver during its first backoff wait, so it
	// returns the context error with no successful attempt; the full
	// 2s..60s backoff schedule across all 8 attempts is not run here.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Deliver(ctx, Target{URL: server.URL, Secret: "shh"}, event)
	if err == nil {
		t.Fatalf("expected an error when every attempt fails")
	}
}
