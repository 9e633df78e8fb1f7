package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/imagegate/gateway/internal/models"
)

// GormCredentialRepository is the production CredentialRepository.
type GormCredentialRepository struct {
	db *gorm.DB
}

func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) Get(ctx context.Context, id string) (*models.Credential, error) {
	var row gormCredential
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ErrNotFound{Kind: "credential", ID: id}
		}
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}
	return fromGormCredential(&row)
}

func (r *GormCredentialRepository) ListEnabledByProvider(ctx context.Context, provider string) ([]*models.Credential, error) {
	var rows []gormCredential
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND enabled = ?", provider, true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list credentials for provider %s: %w", provider, err)
	}
	out := make([]*models.Credential, 0, len(rows))
	for i := range rows {
		c, err := fromGormCredential(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// AutoMigrateCredentials creates/updates the credentials table.
func AutoMigrateCredentials(db *gorm.DB) error {
	return db.AutoMigrate(&gormCredential{})
}

// AutoMigrateJobs creates/updates the jobs table.
func AutoMigrateJobs(db *gorm.DB) error {
	return db.AutoMigrate(&gormJob{})
}
