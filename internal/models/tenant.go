package models

import "time"

// Tenant is an authenticated API consumer. The raw API key is never
// stored: ApiKeyFingerprint is a SHA-256 digest over a per-tenant salt and
// the key, used for an O(1) lookup, and ApiKeyHash is a bcrypt hash
// verified only after a fingerprint hit.
type Tenant struct {
	ID                string
	ApiKeySalt        []byte
	ApiKeyFingerprint []byte
	ApiKeyHash        []byte

	PlanRPM         int
	PlanConcurrency int

	WebhookURL    string
	WebhookSecret string
	Enabled       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
