package sendpushcampaign

import "loyalty-admin/internal/audience"

type Input struct {
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	Audience AudienceInput `json:"audience"`
}

// ModeFiltered targets every customer matching Filters.
const ModeFiltered = "filtered"

// AudienceInput describes who receives the campaign. Mode is "all",
// "selected" (exactly CustomerIDs) or "filtered".
type AudienceInput struct {
	Mode        string           `json:"mode"`
	CustomerIDs []string         `json:"customerIds"`
	Filters     audience.Filters `json:"filters"`
}

type Output struct {
	DispatchID   string `json:"dispatchId"`
	Status       string `json:"status"` // "sent", "partially_failed", "failed"
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	Error        string `json:"error,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"` // PARTIAL_DISPATCH_FAILURE or TOTAL_DISPATCH_FAILURE
	SentAt       string `json:"sentAt"` // ISO 8601
}
