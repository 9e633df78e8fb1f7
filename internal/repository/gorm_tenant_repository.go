package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/imagegate/gateway/internal/models"
)

// GormTenantRepository is the production TenantRepository.
type GormTenantRepository struct {
	db *gorm.DB
}

func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) Get(ctx context.Context, id string) (*models.Tenant, error) {
	var row gormTenant
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ErrNotFound{Kind: "tenant", ID: id}
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return fromGormTenant(&row), nil
}

func (r *GormTenantRepository) GetByFingerprint(ctx context.Context, fingerprint []byte) (*models.Tenant, error) {
	var row gormTenant
	if err := r.db.WithContext(ctx).First(&row, "api_key_fingerprint = ?", fingerprint).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ErrNotFound{Kind: "tenant", ID: "<fingerprint>"}
		}
		return nil, fmt.Errorf("get tenant by fingerprint: %w", err)
	}
	return fromGormTenant(&row), nil
}

// AutoMigrateTenants creates/updates the tenants table, grounded on
// SServet-fakturierung-backend/database/db.go's AutoMigrate pattern.
func AutoMigrateTenants(db *gorm.DB) error {
	return db.AutoMigrate(&gormTenant{})
}
