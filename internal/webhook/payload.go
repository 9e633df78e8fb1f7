package webhook

import "encoding/json"

type payload struct {
	EventID    string        `json:"eventId"`
	JobID      string        `json:"jobId"`
	TenantID   string        `json:"tenantId"`
	Status     string        `json:"status"`
	ResultURLs []string      `json:"resultUrls,omitempty"`
	Error      *payloadError `json:"error,omitempty"`
	Timestamp  int64         `json:"timestamp"`
}

type payloadError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarshalBody renders the verbatim JSON body that gets signed and POSTed.
// Called once per delivery attempt sequence so every retry of the same
// event signs and sends byte-identical bytes.
func MarshalBody(event Event) ([]byte, error) {
	p := payload{
		EventID:    event.EventID,
		JobID:      event.JobID,
		TenantID:   event.TenantID,
		Status:     event.Status,
		ResultURLs: event.ResultURLs,
		Timestamp:  event.Timestamp,
	}
	if event.ErrorCode != "" {
		p.Error = &payloadError{Code: event.ErrorCode, Message: event.ErrorMessage}
	}
	return json.Marshal(p)
}
