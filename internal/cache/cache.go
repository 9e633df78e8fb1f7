// Package cache implements the result cache that lets a repeated final-mode
// request for the same prompt/model/resolution/aspect-ratio/sample-count
// combination skip the provider call entirely and return the prior result
// URLs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Result is what gets stored against a fingerprint: the image URLs produced
// the first time this exact request was generated, plus which model and
// endpoint produced them.
type Result struct {
	URLs         []string
	ModelUsed    string
	EndpointUsed string
}

// Cache is the capability interface for the result cache, with a
// coordination-store-backed production implementation and an in-memory
// fake for tests.
type Cache interface {
	Lookup(ctx context.Context, fingerprint string) (*Result, bool, error)
	Store(ctx context.Context, fingerprint string, result Result, ttl time.Duration) error
}

// Fingerprint derives the cache key for one generation request. Two
// requests that differ only in idempotency token or tenant still collide
// here by design — the cache is keyed on the generation parameters alone.
func Fingerprint(prompt, model, resolution, aspectRatio string, sampleCount int) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(resolution))
	h.Write([]byte{0})
	h.Write([]byte(aspectRatio))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(sampleCount)))
	return hex.EncodeToString(h.Sum(nil))
}

// Key builds the coordination-store key for a fingerprint.
func Key(fingerprint string) string {
	return fmt.Sprintf("rc:gemini:%s", fingerprint)
}
