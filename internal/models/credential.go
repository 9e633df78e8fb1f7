package models

import "time"

// Credential is a provider-side secret. Endpoint is one of the named set
// registered in the provider's endpoint registry (internal/provider);
// PreferredModels drives the scheduler's model-preferred ordering key.
type Credential struct {
	ID       string
	Provider string
	Endpoint string
	Secret   []byte

	RPMLimit         int
	ConcurrencyLimit int
	Priority         int
	Enabled          bool
	PreferredModels  []string

	CreatedAt time.Time
}
