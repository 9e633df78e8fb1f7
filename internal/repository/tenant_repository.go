package repository

import (
	"context"

	"github.com/imagegate/gateway/internal/models"
)

// TenantRepository looks up tenants for authentication and plan limits.
// Tenants are created out-of-band — this contract is read-only.
type TenantRepository interface {
	GetByFingerprint(ctx context.Context, fingerprint []byte) (*models.Tenant, error)
	Get(ctx context.Context, id string) (*models.Tenant, error)
}
