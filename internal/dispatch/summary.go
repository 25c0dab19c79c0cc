// internal/dispatch/summary.go
package dispatch

import (
	"fmt"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/models"
)

// MalformedMessage is the fatal error of a reply with no recognizable shape.
const MalformedMessage = "unexpected response shape"

type Outcome string

const (
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomePartiallyFailed Outcome = "partially_failed"
	OutcomeFailed          Outcome = "failed"
)

// Status maps the outcome onto the notification status reported to callers.
func (o Outcome) Status() string {
	switch o {
	case OutcomeSucceeded:
		return models.StatusSent
	case OutcomePartiallyFailed:
		return models.StatusPartiallyFailed
	default:
		return models.StatusFailed
	}
}

// Summary is the interpreted result of one dispatch.
type Summary struct {
	DispatchID   string  `json:"dispatchId"`
	SuccessCount int     `json:"successCount"`
	FailureCount int     `json:"failureCount"`
	FatalError   string  `json:"fatalError,omitempty"`
	Outcome      Outcome `json:"outcome"`
}

// Err classifies an unsuccessful outcome: PARTIAL_DISPATCH_FAILURE for a
// mixed result, TOTAL_DISPATCH_FAILURE when nothing was delivered. It is nil
// for a full success.
func (s Summary) Err() error {
	switch s.Outcome {
	case OutcomeSucceeded:
		return nil
	case OutcomePartiallyFailed:
		return errors.NewPartialDispatchFailure(s.SuccessCount, s.FailureCount)
	default:
		if s.FatalError != "" {
			return errors.NewTotalDispatchFailure(s.FatalError)
		}
		return errors.NewTotalDispatchFailure(fmt.Sprintf("none of %d notifications delivered", s.FailureCount))
	}
}

// Summarize interprets a reply. Results with zero successes are a total
// failure; a mix is a partial failure.
func Summarize(resp Response) Summary {
	switch r := resp.(type) {
	case ResultsResponse:
		var s Summary
		for _, res := range r.Results {
			if res.Success {
				s.SuccessCount++
			} else {
				s.FailureCount++
			}
		}
		switch {
		case s.SuccessCount == 0:
			s.Outcome = OutcomeFailed
		case s.FailureCount > 0:
			s.Outcome = OutcomePartiallyFailed
		default:
			s.Outcome = OutcomeSucceeded
		}
		return s
	case ErrorResponse:
		return Summary{FatalError: r.Message, Outcome: OutcomeFailed}
	default:
		return Summary{FatalError: MalformedMessage, Outcome: OutcomeFailed}
	}
}
