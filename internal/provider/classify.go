package provider

import (
	"net/http"

	"github.com/imagegate/gateway/internal/models"
)

// classifyStatus maps an HTTP status code to the provider's deterministic
// error code, matching the upstream's documented retry semantics.
func classifyStatus(status int, body []byte) *models.JobError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest:
		return &models.JobError{Code: "INVALID_REQUEST", Message: "provider rejected the request", Retryable: false}
	case status == http.StatusUnauthorized:
		return &models.JobError{Code: "INVALID_API_KEY", Message: "provider rejected the credential", Retryable: false}
	case status == http.StatusTooManyRequests:
		return &models.JobError{Code: "RATE_LIMIT_EXCEEDED", Message: "provider rate limit exceeded", Retryable: true}
	case status == http.StatusServiceUnavailable:
		return &models.JobError{Code: "SERVICE_OVERLOAD", Message: "provider endpoint overloaded", Retryable: true}
	case status >= 500:
		return &models.JobError{Code: "SERVER_ERROR", Message: "provider server error", Retryable: true}
	default:
		return &models.JobError{Code: "GEMINI_ERROR", Message: "unexpected provider response status", Retryable: true}
	}
}
