// internal/dispatch/response.go
package dispatch

import (
	"encoding/json"
)

// Response is the interpreted shape of a notification service reply.
// Exactly one of ResultsResponse, ErrorResponse or MalformedResponse.
type Response interface {
	isResponse()
}

// Result is the delivery outcome for one device token.
type Result struct {
	Token   string `json:"token,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResultsResponse carries one entry per submitted token.
type ResultsResponse struct {
	Results []Result
}

// ErrorResponse is a service-reported failure of the whole request.
type ErrorResponse struct {
	Message string
}

// MalformedResponse is any reply matching neither known shape.
type MalformedResponse struct {
	Raw []byte
}

func (ResultsResponse) isResponse()   {}
func (ErrorResponse) isResponse()     {}
func (MalformedResponse) isResponse() {}

type wireResponse struct {
	Results *[]Result `json:"results"`
	Error   *string   `json:"error"`
}

// ParseResponse decides the variant of a raw reply body. A results array wins
// over an error string; anything else, including invalid JSON, is malformed.
func ParseResponse(raw []byte) Response {
	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return MalformedResponse{Raw: raw}
	}
	switch {
	case w.Results != nil:
		return ResultsResponse{Results: *w.Results}
	case w.Error != nil:
		return ErrorResponse{Message: *w.Error}
	default:
		return MalformedResponse{Raw: raw}
	}
}
