package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/imagegate/gateway/internal/models"
)

// GormJobRepository is the production JobRepository, grounded on
// SServet-fakturierung-backend/database/db.go's plain *gorm.DB session
// style (no repository-pattern abstraction there, but the same
// transaction-per-operation discipline).
type GormJobRepository struct {
	db *gorm.DB
}

func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) FindOrCreate(ctx context.Context, job *models.Job) (*models.Job, bool, error) {
	var result *models.Job
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if job.IdempotencyToken != "" {
			var existing gormJob
			err := tx.Where("tenant_id = ? AND idempotency_token = ?", job.TenantID, job.IdempotencyToken).
				First(&existing).Error
			if err == nil {
				converted, convErr := fromGormJob(&existing)
				if convErr != nil {
					return convErr
				}
				result = converted
				return nil
			}
			if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("find existing job: %w", err)
			}
		}

		if job.ID == "" {
			job.ID = uuid.New().String()
		}
		now := time.Now().UTC()
		job.CreatedAt = now
		job.UpdatedAt = now

		row, err := toGormJob(job)
		if err != nil {
			return err
		}
		tx.SavePoint("job_create")
		if err := tx.Create(row).Error; err != nil {
			// Unique-constraint race on (tenant_id, idempotency_token):
			// someone else won, read their row back. Rolling back to the
			// savepoint first keeps the transaction usable after the
			// failed insert.
			if job.IdempotencyToken != "" {
				tx.RollbackTo("job_create")
				var existing gormJob
				if err2 := tx.Where("tenant_id = ? AND idempotency_token = ?", job.TenantID, job.IdempotencyToken).
					First(&existing).Error; err2 == nil {
					converted, convErr := fromGormJob(&existing)
					if convErr != nil {
						return convErr
					}
					result = converted
					return nil
				}
			}
			return fmt.Errorf("create job: %w", err)
		}

		created = true
		converted, convErr := fromGormJob(row)
		if convErr != nil {
			return convErr
		}
		result = converted
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *GormJobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var row gormJob
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ErrNotFound{Kind: "job", ID: id}
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return fromGormJob(&row)
}

func (r *GormJobRepository) CompareAndSwapStatus(ctx context.Context, id string, from, to models.JobStatus, mutate func(*models.Job)) error {
	if !models.ValidTransition(from, to) {
		return &ErrInvalidTransition{ID: id, From: from, To: to}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row gormJob
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &ErrNotFound{Kind: "job", ID: id}
			}
			return fmt.Errorf("load job %s: %w", id, err)
		}
		if models.JobStatus(row.Status) != from {
			return &ErrStatusMismatch{ID: id, Wanted: from, Current: models.JobStatus(row.Status)}
		}

		job, err := fromGormJob(&row)
		if err != nil {
			return err
		}
		if mutate != nil {
			mutate(job)
		}
		job.Status = to
		job.UpdatedAt = time.Now().UTC()

		updated, err := toGormJob(job)
		if err != nil {
			return err
		}

		res := tx.Model(&gormJob{}).Where("id = ? AND status = ?", id, string(from)).Updates(updated)
		if res.Error != nil {
			return fmt.Errorf("update job %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return &ErrStatusMismatch{ID: id, Wanted: from, Current: models.JobStatus(row.Status)}
		}
		return nil
	})
}

func (r *GormJobRepository) AppendResultURL(ctx context.Context, id string, url string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row gormJob
		// Row lock: parallel uploads append to the same job concurrently.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &ErrNotFound{Kind: "job", ID: id}
			}
			return fmt.Errorf("load job %s: %w", id, err)
		}
		urls, err := unmarshalStrings(row.ResultURLs)
		if err != nil {
			return err
		}
		urls = append(urls, url)
		marshaled, err := marshalStrings(urls)
		if err != nil {
			return err
		}
		if err := tx.Model(&gormJob{}).Where("id = ?", id).Updates(map[string]interface{}{
			"result_urls": marshaled,
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("append result url for job %s: %w", id, err)
		}
		return nil
	})
}

func (r *GormJobRepository) ListRunnable(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	now := time.Now().UTC()
	var rows []gormJob
	if err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND next_attempt_at <= ?)", string(models.JobQueued), string(models.JobRetrying), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list runnable jobs: %w", err)
	}
	jobs := make([]*models.Job, 0, len(rows))
	for i := range rows {
		job, err := fromGormJob(&rows[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *GormJobRepository) ListStaleRunning(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	var rows []gormJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(models.JobRunning), cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stale running jobs: %w", err)
	}
	jobs := make([]*models.Job, 0, len(rows))
	for i := range rows {
		job, err := fromGormJob(&rows[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *GormJobRepository) List(ctx context.Context, tenantID string, status models.JobStatus, limit int, cursor string) ([]*models.Job, string, bool, error) {
	if limit <= 0 {
		limit = 20
	}

	q := r.db.WithContext(ctx).Model(&gormJob{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if cursor != "" {
		decoded, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", false, fmt.Errorf("list jobs: invalid cursor: %w", err)
		}
		var after gormJob
		if err := r.db.WithContext(ctx).First(&after, "id = ?", decoded).Error; err == nil {
			q = q.Where("(created_at, id) < (?, ?)", after.CreatedAt, after.ID)
		}
	}

	var rows []gormJob
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", false, fmt.Errorf("list jobs: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	jobs := make([]*models.Job, 0, len(rows))
	for i := range rows {
		job, err := fromGormJob(&rows[i])
		if err != nil {
			return nil, "", false, err
		}
		jobs = append(jobs, job)
	}

	var next string
	if hasMore && len(jobs) > 0 {
		next = encodeCursor(jobs[len(jobs)-1].ID)
	}
	return jobs, next, hasMore, nil
}
