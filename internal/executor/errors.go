package executor

import "github.com/imagegate/gateway/internal/models"

// errorTable is the deterministic code -> retryable map consulted (through
// Retryable) when the executor builds its own JobError values for the
// retry decision. Every code the admission pipeline and provider driver
// can raise has exactly one entry here.
var errorTable = map[string]bool{
	"INVALID_REQUEST":           false,
	"INVALID_API_KEY":           false,
	"RATE_LIMIT_EXCEEDED":       true,
	"SERVICE_OVERLOAD":          true,
	"SERVER_ERROR":              true,
	"GEMINI_ERROR":              true,
	"GLOBAL_RATE_LIMIT":         true,
	"GLOBAL_CONC_LIMIT":         true,
	"KEY_RATE_LIMIT":            true,
	"KEY_CONC_LIMIT":            true,
	"TENANT_RATE_LIMIT":         true,
	"TENANT_CONC_LIMIT":         true,
	"NO_PROVIDER_KEY_AVAILABLE": true,
	"NO_IMAGES":                 false,
	"STORAGE_ERROR":             true,
	"UNKNOWN_ERROR":             true,
}

// Retryable reports whether code should trigger a RETRYING transition
// (subject to attempts < max_attempts), defaulting to true for any
// WEBHOOK_HTTP_{status}-shaped code the webhook deliverer produces and for
// any unrecognized code.
func Retryable(code string) bool {
	if retryable, ok := errorTable[code]; ok {
		return retryable
	}
	return true
}

func jobError(code, message string) *models.JobError {
	return &models.JobError{Code: code, Message: message, Retryable: Retryable(code)}
}
