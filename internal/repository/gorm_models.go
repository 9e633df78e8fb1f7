package repository

import (
	"time"

	"gorm.io/datatypes"

	"github.com/imagegate/gateway/internal/models"
)

// gormJob is the Postgres row shape for a Job, mapped from/to
// models.Job. ResultURLs lives as jsonb via gorm.io/datatypes; the
// optional fields are plain columns (SServet-fakturierung-backend already pulls
// in gorm.io/datatypes for the same "flexible column, typed domain model"
// split).
type gormJob struct {
	ID               string `gorm:"primaryKey;size:64"`
	TenantID         string `gorm:"size:64;uniqueIndex:idx_job_tenant_idem,priority:1,where:idempotency_token <> ''"`
	IdempotencyToken string `gorm:"size:128;uniqueIndex:idx_job_tenant_idem,priority:2,where:idempotency_token <> ''"`

	Status string `gorm:"size:16;index"`
	Mode   string `gorm:"size:8"`

	Prompt         string `gorm:"type:text"`
	ReferenceImage string `gorm:"type:text"`
	Resolution     string `gorm:"size:8"`
	AspectRatio    string `gorm:"size:8"`
	SampleCount    int

	Attempts         int
	MaxAttempts      int
	LastErrorCode    string `gorm:"size:64"`
	LastErrorMessage string `gorm:"type:text"`

	CredentialID string `gorm:"size:64"`
	ModelUsed    string `gorm:"size:64"`
	EndpointUsed string `gorm:"size:32"`

	ResultURLs datatypes.JSON

	NextAttemptAt time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (gormJob) TableName() string { return "jobs" }

func toGormJob(j *models.Job) (*gormJob, error) {
	urls, err := marshalStrings(j.ResultURLs)
	if err != nil {
		return nil, err
	}
	return &gormJob{
		ID:               j.ID,
		TenantID:         j.TenantID,
		IdempotencyToken: j.IdempotencyToken,
		Status:           string(j.Status),
		Mode:             string(j.Mode),
		Prompt:           j.Prompt,
		ReferenceImage:   j.ReferenceImage,
		Resolution:       j.Resolution,
		AspectRatio:      j.AspectRatio,
		SampleCount:      j.SampleCount,
		Attempts:         j.Attempts,
		MaxAttempts:      j.MaxAttempts,
		LastErrorCode:    j.LastErrorCode,
		LastErrorMessage: j.LastErrorMessage,
		CredentialID:     j.CredentialID,
		ModelUsed:        j.ModelUsed,
		EndpointUsed:     j.EndpointUsed,
		ResultURLs:       urls,
		NextAttemptAt:    j.NextAttemptAt,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}, nil
}

func fromGormJob(g *gormJob) (*models.Job, error) {
	urls, err := unmarshalStrings(g.ResultURLs)
	if err != nil {
		return nil, err
	}
	return &models.Job{
		ID:               g.ID,
		TenantID:         g.TenantID,
		IdempotencyToken: g.IdempotencyToken,
		Status:           models.JobStatus(g.Status),
		Mode:             models.Mode(g.Mode),
		Prompt:           g.Prompt,
		ReferenceImage:   g.ReferenceImage,
		Resolution:       g.Resolution,
		AspectRatio:      g.AspectRatio,
		SampleCount:      g.SampleCount,
		Attempts:         g.Attempts,
		MaxAttempts:      g.MaxAttempts,
		LastErrorCode:    g.LastErrorCode,
		LastErrorMessage: g.LastErrorMessage,
		CredentialID:     g.CredentialID,
		ModelUsed:        g.ModelUsed,
		EndpointUsed:     g.EndpointUsed,
		ResultURLs:       urls,
		NextAttemptAt:    g.NextAttemptAt,
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
	}, nil
}

// gormTenant is the Postgres row shape for a Tenant.
type gormTenant struct {
	ID                string `gorm:"primaryKey;size:64"`
	ApiKeySalt        []byte
	ApiKeyFingerprint []byte `gorm:"uniqueIndex;size:32"`
	ApiKeyHash        []byte

	PlanRPM         int
	PlanConcurrency int

	WebhookURL    string `gorm:"type:text"`
	WebhookSecret string `gorm:"type:text"`
	Enabled       bool   `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (gormTenant) TableName() string { return "tenants" }

func toGormTenant(t *models.Tenant) *gormTenant {
	return &gormTenant{
		ID:                t.ID,
		ApiKeySalt:        t.ApiKeySalt,
		ApiKeyFingerprint: t.ApiKeyFingerprint,
		ApiKeyHash:        t.ApiKeyHash,
		PlanRPM:           t.PlanRPM,
		PlanConcurrency:   t.PlanConcurrency,
		WebhookURL:        t.WebhookURL,
		WebhookSecret:     t.WebhookSecret,
		Enabled:           t.Enabled,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func fromGormTenant(g *gormTenant) *models.Tenant {
	return &models.Tenant{
		ID:                g.ID,
		ApiKeySalt:        g.ApiKeySalt,
		ApiKeyFingerprint: g.ApiKeyFingerprint,
		ApiKeyHash:        g.ApiKeyHash,
		PlanRPM:           g.PlanRPM,
		PlanConcurrency:   g.PlanConcurrency,
		WebhookURL:        g.WebhookURL,
		WebhookSecret:     g.WebhookSecret,
		Enabled:           g.Enabled,
		CreatedAt:         g.CreatedAt,
		UpdatedAt:         g.UpdatedAt,
	}
}

// gormCredential is the Postgres row shape for a Credential.
type gormCredential struct {
	ID       string `gorm:"primaryKey;size:64"`
	Provider string `gorm:"size:32;index"`
	Endpoint string `gorm:"size:32"`
	Secret   []byte

	RPMLimit         int
	ConcurrencyLimit int
	Priority         int
	Enabled          bool `gorm:"default:true;index"`
	PreferredModels  datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

func (gormCredential) TableName() string { return "credentials" }

func toGormCredential(c *models.Credential) (*gormCredential, error) {
	models_, err := marshalStrings(c.PreferredModels)
	if err != nil {
		return nil, err
	}
	return &gormCredential{
		ID:               c.ID,
		Provider:         c.Provider,
		Endpoint:         c.Endpoint,
		Secret:           c.Secret,
		RPMLimit:         c.RPMLimit,
		ConcurrencyLimit: c.ConcurrencyLimit,
		Priority:         c.Priority,
		Enabled:          c.Enabled,
		PreferredModels:  models_,
		CreatedAt:        c.CreatedAt,
	}, nil
}

func fromGormCredential(g *gormCredential) (*models.Credential, error) {
	preferred, err := unmarshalStrings(g.PreferredModels)
	if err != nil {
		return nil, err
	}
	return &models.Credential{
		ID:               g.ID,
		Provider:         g.Provider,
		Endpoint:         g.Endpoint,
		Secret:           g.Secret,
		RPMLimit:         g.RPMLimit,
		ConcurrencyLimit: g.ConcurrencyLimit,
		Priority:         g.Priority,
		Enabled:          g.Enabled,
		PreferredModels:  preferred,
		CreatedAt:        g.CreatedAt,
	}, nil
}
