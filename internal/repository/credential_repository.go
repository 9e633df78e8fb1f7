package repository

import (
	"context"

	"github.com/imagegate/gateway/internal/models"
)

// CredentialRepository lists provider credentials for the scheduler.
// Credentials are set out-of-band and are owned by this store — workers
// only ever reference them by id.
type CredentialRepository interface {
	// ListEnabledByProvider returns every enabled credential for provider,
	// in row-creation order (oldest first) — the scheduler relies on this
	// ordering for its insertion-order tie-break.
	ListEnabledByProvider(ctx context.Context, provider string) ([]*models.Credential, error)
	Get(ctx context.Context, id string) (*models.Credential, error)
}
