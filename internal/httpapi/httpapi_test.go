package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/repository"
)

func newTestApp(t *testing.T) (*testAppHarness, string) {
	t.Helper()

	jobs := repository.NewMemoryJobRepository()
	tenants := repository.NewMemoryTenantRepository()

	raw, salt, fingerprint, hash, err := NewAPIKey()
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	tenant := &models.Tenant{
		ID:                "tenant-1",
		ApiKeySalt:        salt,
		ApiKeyFingerprint: fingerprint,
		ApiKeyHash:        hash,
		PlanRPM:           100,
		PlanConcurrency:   10,
		Enabled:           true,
	}
	tenants.Put(tenant)

	cfg := DefaultConfig()
	cfg.RateLimitMax = 1000
	app := New(cfg, Deps{Jobs: jobs, Tenants: tenants})

	return &testAppHarness{app: app, jobs: jobs, tenants: tenants}, raw
}

type testAppHarness struct {
	app     interface {
		Test(*http.Request, ...int) (*http.Response, error)
	}
	jobs    *repository.MemoryJobRepository
	tenants *repository.MemoryTenantRepository
}

func TestHealth_ReturnsOKWithoutAuth(t *testing.T) {
	h, _ := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateJob_RequiresAuth(t *testing.T) {
	h, _ := newTestApp(t)
	body, _ := json.Marshal(GenerateRequest{Prompt: "a cat wearing sunglasses on a beach"})
	req := httptest.NewRequest(http.MethodPost, "/v1/images/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var body2 struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body2.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("error code = %s, want UNAUTHORIZED", body2.Error.Code)
	}
}

func TestCreateJob_SucceedsAndIsIdempotent(t *testing.T) {
	h, apiKey := newTestApp(t)
	reqBody := GenerateRequest{Prompt: "a cat wearing sunglasses on a beach"}
	body, _ := json.Marshal(reqBody)

	makeRequest := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/v1/images/generate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Idempotency-Key", "tok-1")
		resp, err := h.app.Test(req)
		if err != nil {
			t.Fatalf("Test: %v", err)
		}
		return resp
	}

	first := makeRequest()
	if first.StatusCode != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", first.StatusCode)
	}
	var firstJob JobResponse
	if err := json.NewDecoder(first.Body).Decode(&firstJob); err != nil {
		t.Fatalf("decode: %v", err)
	}

	second := makeRequest()
	if second.StatusCode != http.StatusOK {
		t.Fatalf("second status = %d, want 200 (idempotent replay)", second.StatusCode)
	}
	var secondJob JobResponse
	if err := json.NewDecoder(second.Body).Decode(&secondJob); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if secondJob.JobID != firstJob.JobID {
		t.Fatalf("idempotent replay returned a different job id: %s vs %s", secondJob.JobID, firstJob.JobID)
	}
}

func TestCreateJob_RejectsShortPrompt(t *testing.T) {
	h, apiKey := newTestApp(t)
	body, _ := json.Marshal(GenerateRequest{Prompt: "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/images/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestGetJob_NotFoundForOtherTenant(t *testing.T) {
	h, apiKey := newTestApp(t)

	other := &models.Job{ID: "other-job", TenantID: "some-other-tenant", Status: models.JobQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if _, _, err := h.jobs.FindOrCreate(context.Background(), other); err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/other-job", nil)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("error code = %s, want NOT_FOUND", body.Error.Code)
	}
}

func TestCancelJob_RejectsTerminalJob(t *testing.T) {
	h, apiKey := newTestApp(t)

	job := &models.Job{ID: "done-job", TenantID: "tenant-1", Status: models.JobSucceeded, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if _, _, err := h.jobs.FindOrCreate(context.Background(), job); err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/jobs/done-job", nil)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "INVALID_STATE" {
		t.Fatalf("error code = %s, want INVALID_STATE", body.Error.Code)
	}
}
