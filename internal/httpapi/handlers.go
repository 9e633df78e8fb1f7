package httpapi

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/repository"
)

const maxInputImageBytes = 4 * 1024 * 1024

var dataURLPattern = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp);base64,([A-Za-z0-9+/]+=*)$`)

type api struct {
	jobs    repository.JobRepository
	tenants repository.TenantRepository
	cfg     Config
	ping    func() error
}

func (a *api) health(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	if a.ping != nil {
		if err := a.ping(); err != nil {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}
	return c.Status(code).JSON(fiber.Map{"status": status})
}

func (a *api) createJob(c *fiber.Ctx) error {
	tenant := tenantFromContext(c)

	var req GenerateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if req.InputImage != "" {
		match := dataURLPattern.FindStringSubmatch(req.InputImage)
		if match == nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "inputImage must be a base64 data URL with image/png, image/jpeg, image/jpg, image/gif, or image/webp content")
		}
		decoded, err := base64.StdEncoding.DecodeString(match[2])
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "inputImage payload is not valid base64")
		}
		if len(decoded) > maxInputImageBytes {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "inputImage exceeds the 4MiB limit")
		}
	}

	mode := models.Mode(req.Mode)
	if mode == "" {
		mode = models.ModeFinal
	}
	sampleCount := req.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	idempotencyToken := strings.TrimSpace(c.Get("Idempotency-Key"))
	if len(idempotencyToken) > 128 {
		return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key exceeds 128 characters")
	}

	job := &models.Job{
		TenantID:         tenant.ID,
		IdempotencyToken: idempotencyToken,
		Status:           models.JobQueued,
		Mode:             mode,
		Prompt:           req.Prompt,
		ReferenceImage:   req.InputImage,
		Resolution:       req.Resolution,
		AspectRatio:      req.AspectRatio,
		SampleCount:      sampleCount,
		MaxAttempts:      a.cfg.MaxAttempts,
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 4
	}

	stored, created, err := a.jobs.FindOrCreate(c.UserContext(), job)
	if err != nil {
		return err
	}

	status := fiber.StatusAccepted
	if !created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(toJobResponse(stored))
}

func (a *api) getJob(c *fiber.Ctx) error {
	tenant := tenantFromContext(c)
	job, err := a.loadTenantJob(c, tenant.ID)
	if err != nil {
		return err
	}
	return c.JSON(toJobResponse(job))
}

func (a *api) listJobs(c *fiber.Ctx) error {
	tenant := tenantFromContext(c)

	status := models.JobStatus(c.Query("status"))
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	cursor := c.Query("cursor")

	jobs, next, hasMore, err := a.jobs.List(c.UserContext(), tenant.ID, status, limit, cursor)
	if err != nil {
		return err
	}

	resp := JobListResponse{NextCursor: next, HasMore: hasMore}
	for _, j := range jobs {
		resp.Items = append(resp.Items, toJobResponse(j))
	}
	return c.JSON(resp)
}

func (a *api) cancelJob(c *fiber.Ctx) error {
	tenant := tenantFromContext(c)
	job, err := a.loadTenantJob(c, tenant.ID)
	if err != nil {
		return err
	}

	if job.Status.IsTerminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrorBody{Code: "INVALID_STATE", Message: "job already reached a terminal status"},
		})
	}

	if err := a.jobs.CompareAndSwapStatus(c.UserContext(), job.ID, job.Status, models.JobCanceled, nil); err != nil {
		if _, ok := err.(*repository.ErrStatusMismatch); ok {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": ErrorBody{Code: "INVALID_REQUEST", Message: "job status changed concurrently, retry"},
			})
		}
		return err
	}

	job.Status = models.JobCanceled
	return c.JSON(toJobResponse(job))
}

func (a *api) loadTenantJob(c *fiber.Ctx, tenantID string) (*models.Job, error) {
	job, err := a.jobs.Get(c.UserContext(), c.Params("jobId"))
	if err != nil {
		if _, ok := err.(*repository.ErrNotFound); ok {
			return nil, fiber.NewError(fiber.StatusNotFound, "job not found")
		}
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	return job, nil
}
