package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imagegate/gateway/internal/models"
)

// MemoryJobRepository is an in-memory JobRepository fake, used by
// internal/executor's and internal/httpapi's tests.
type MemoryJobRepository struct {
	mu   sync.Mutex
	byID map[string]*models.Job
	// idempotency index: tenantID -> token -> jobID
	idemIndex map[string]map[string]string
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		byID:      make(map[string]*models.Job),
		idemIndex: make(map[string]map[string]string),
	}
}

func (r *MemoryJobRepository) FindOrCreate(_ context.Context, job *models.Job) (*models.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.IdempotencyToken != "" {
		if tokens, ok := r.idemIndex[job.TenantID]; ok {
			if existingID, ok := tokens[job.IdempotencyToken]; ok {
				existing := r.byID[existingID]
				copy := *existing
				return &copy, false, nil
			}
		}
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	stored := *job
	r.byID[job.ID] = &stored

	if job.IdempotencyToken != "" {
		if _, ok := r.idemIndex[job.TenantID]; !ok {
			r.idemIndex[job.TenantID] = make(map[string]string)
		}
		r.idemIndex[job.TenantID][job.IdempotencyToken] = job.ID
	}

	result := stored
	return &result, true, nil
}

func (r *MemoryJobRepository) Get(_ context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.byID[id]
	if !ok {
		return nil, &ErrNotFound{Kind: "job", ID: id}
	}
	result := *job
	return &result, nil
}

func (r *MemoryJobRepository) CompareAndSwapStatus(_ context.Context, id string, from, to models.JobStatus, mutate func(*models.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.byID[id]
	if !ok {
		return &ErrNotFound{Kind: "job", ID: id}
	}
	if job.Status != from {
		return &ErrStatusMismatch{ID: id, Wanted: from, Current: job.Status}
	}
	if !models.ValidTransition(from, to) {
		return &ErrInvalidTransition{ID: id, From: from, To: to}
	}

	if mutate != nil {
		mutate(job)
	}
	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryJobRepository) AppendResultURL(_ context.Context, id string, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.byID[id]
	if !ok {
		return &ErrNotFound{Kind: "job", ID: id}
	}
	job.AppendResultURL(url)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryJobRepository) ListRunnable(_ context.Context, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var matched []*models.Job
	for _, job := range r.byID {
		runnable := job.Status == models.JobQueued ||
			(job.Status == models.JobRetrying && !job.NextAttemptAt.After(now))
		if runnable {
			copy := *job
			matched = append(matched, &copy)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryJobRepository) ListStaleRunning(_ context.Context, olderThan time.Duration, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var matched []*models.Job
	for _, job := range r.byID {
		if job.Status == models.JobRunning && job.UpdatedAt.Before(cutoff) {
			copy := *job
			matched = append(matched, &copy)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryJobRepository) List(_ context.Context, tenantID string, status models.JobStatus, limit int, cursor string) ([]*models.Job, string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Job
	for _, job := range r.byID {
		if job.TenantID != tenantID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		copy := *job
		matched = append(matched, &copy)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := 0
	if cursor != "" {
		decoded, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", false, fmt.Errorf("list jobs: invalid cursor: %w", err)
		}
		for i, job := range matched {
			if job.ID == decoded {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 20
	}

	end := start + limit
	hasMore := end < len(matched)
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]

	var next string
	if hasMore && len(page) > 0 {
		next = encodeCursor(page[len(page)-1].ID)
	}
	return page, next, hasMore, nil
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MemoryTenantRepository is an in-memory TenantRepository fake.
type MemoryTenantRepository struct {
	mu          sync.Mutex
	byID        map[string]*models.Tenant
	byFingerprint map[string]*models.Tenant
}

func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{
		byID:          make(map[string]*models.Tenant),
		byFingerprint: make(map[string]*models.Tenant),
	}
}

func (r *MemoryTenantRepository) Put(t *models.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
	r.byFingerprint[string(t.ApiKeyFingerprint)] = t
}

func (r *MemoryTenantRepository) Get(_ context.Context, id string) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, &ErrNotFound{Kind: "tenant", ID: id}
	}
	return t, nil
}

func (r *MemoryTenantRepository) GetByFingerprint(_ context.Context, fingerprint []byte) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byFingerprint[string(fingerprint)]
	if !ok {
		return nil, &ErrNotFound{Kind: "tenant", ID: "<fingerprint>"}
	}
	return t, nil
}

// MemoryCredentialRepository is an in-memory CredentialRepository fake.
type MemoryCredentialRepository struct {
	mu    sync.Mutex
	byID  map[string]*models.Credential
	order []*models.Credential // preserves insertion order for the tie-break
}

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{byID: make(map[string]*models.Credential)}
}

func (r *MemoryCredentialRepository) Put(c *models.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	r.order = append(r.order, c)
}

func (r *MemoryCredentialRepository) Get(_ context.Context, id string) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, &ErrNotFound{Kind: "credential", ID: id}
	}
	return c, nil
}

func (r *MemoryCredentialRepository) ListEnabledByProvider(_ context.Context, provider string) ([]*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Credential
	for _, c := range r.order {
		if c.Provider == provider && c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}
