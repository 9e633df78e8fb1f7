package httpapi

import "github.com/imagegate/gateway/internal/models"

// GenerateRequest is the body of POST /v1/images/generate. The
// idempotency key travels on the Idempotency-Key header per spec.md §6,
// not in this body.
type GenerateRequest struct {
	Prompt      string `json:"prompt" validate:"required,min=3,max=4000"`
	Mode        string `json:"mode" validate:"omitempty,oneof=draft final"`
	Resolution  string `json:"resolution" validate:"omitempty,oneof=1K 2K 4K"`
	AspectRatio string `json:"aspectRatio" validate:"omitempty,oneof=1:1 16:9 9:16 4:3 3:4"`
	SampleCount int    `json:"sampleCount" validate:"omitempty,min=1,max=10"`
	InputImage  string `json:"inputImage" validate:"omitempty"`
}

// JobResponse is the public shape of a job, returned by every job-facing
// endpoint.
type JobResponse struct {
	JobID        string   `json:"jobId"`
	Status       string   `json:"status"`
	Mode         string   `json:"mode"`
	Prompt       string   `json:"prompt"`
	ResultURLs   []string `json:"resultUrls,omitempty"`
	ModelUsed    string   `json:"modelUsed,omitempty"`
	EndpointUsed string   `json:"endpointUsed,omitempty"`
	Attempts     int      `json:"attempts"`
	Error        *ErrorBody `json:"error,omitempty"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

// ErrorBody mirrors the executor's deterministic error codes back to the
// tenant.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JobListResponse is the body of GET /v1/jobs.
type JobListResponse struct {
	Items      []JobResponse `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
	HasMore    bool          `json:"hasMore"`
}

func toJobResponse(j *models.Job) JobResponse {
	resp := JobResponse{
		JobID:        j.ID,
		Status:       string(j.Status),
		Mode:         string(j.Mode),
		Prompt:       j.Prompt,
		ResultURLs:   j.ResultURLs,
		ModelUsed:    j.ModelUsed,
		EndpointUsed: j.EndpointUsed,
		Attempts:     j.Attempts,
		CreatedAt:    j.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		UpdatedAt:    j.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if j.LastErrorCode != "" {
		resp.Error = &ErrorBody{Code: j.LastErrorCode, Message: j.LastErrorMessage}
	}
	return resp
}
