// Package errors provides the standardized error kinds of the push dispatch flow
// and their conversion to BPMN errors for the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Flow-local errors: recovered by staying in Composing.
const (
	ErrCodeEmptyAudience    ErrorCode = "EMPTY_AUDIENCE"
	ErrCodeNoRecipients     ErrorCode = "NO_RECIPIENTS"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeBatchTooLarge    ErrorCode = "BATCH_TOO_LARGE"
	ErrCodeSubmitInProgress ErrorCode = "SUBMIT_IN_PROGRESS"
)

// Dispatch outcome errors.
const (
	ErrCodeTransportFailed        ErrorCode = "TRANSPORT_FAILED"
	ErrCodePartialDispatchFailure ErrorCode = "PARTIAL_DISPATCH_FAILURE"
	ErrCodeTotalDispatchFailure   ErrorCode = "TOTAL_DISPATCH_FAILURE"
)

// Collaborator and worker errors.
const (
	ErrCodeCustomerFetchFailed ErrorCode = "CUSTOMER_FETCH_FAILED"
	ErrCodeInputParsingFailed  ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeInvalidPrincipal    ErrorCode = "INVALID_PRINCIPAL_TYPE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *StandardError by code, so errors.Is works against the
// sentinel values below.
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if stderrors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyAudience    = &StandardError{Code: ErrCodeEmptyAudience}
	ErrNoRecipients     = &StandardError{Code: ErrCodeNoRecipients}
	ErrValidationFailed = &StandardError{Code: ErrCodeValidationFailed}
	ErrBatchTooLarge    = &StandardError{Code: ErrCodeBatchTooLarge}
	ErrSubmitInProgress = &StandardError{Code: ErrCodeSubmitInProgress}
	ErrTransportFailed  = &StandardError{Code: ErrCodeTransportFailed}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyAudienceError is returned when explicit-selection mode has nobody selected.
func NewEmptyAudienceError() *StandardError {
	return newError(ErrCodeEmptyAudience, "Select at least one customer", "", false)
}

// NewNoRecipientsError is returned when the resolved audience has no usable device token.
func NewNoRecipientsError(audienceSize int) *StandardError {
	err := newError(ErrCodeNoRecipients, "Selected customers cannot receive push notifications",
		fmt.Sprintf("audienceSize: %d", audienceSize), false)
	err.Metadata = map[string]interface{}{"audienceSize": audienceSize}
	return err
}

// NewValidationError reports field-level form problems. fields maps field name to message.
func NewValidationError(fields map[string]string) *StandardError {
	names := make([]string, 0, len(fields))
	meta := make(map[string]interface{}, len(fields))
	for name, msg := range fields {
		names = append(names, name)
		meta[name] = msg
	}
	sort.Strings(names)
	err := newError(ErrCodeValidationFailed, "Required fields are missing or invalid",
		strings.Join(names, ", "), false)
	err.Metadata = meta
	return err
}

// NewBatchTooLargeError rejects a token list above the configured cap.
func NewBatchTooLargeError(size, max int) *StandardError {
	return newError(ErrCodeBatchTooLarge, "Too many recipients for a single dispatch",
		fmt.Sprintf("tokens: %d, max: %d", size, max), false)
}

// NewSubmitInProgressError guards against double submission.
func NewSubmitInProgressError() *StandardError {
	return newError(ErrCodeSubmitInProgress, "A dispatch is already being submitted", "", false)
}

// NewTransportError wraps a network or HTTP-level failure of the submit call.
func NewTransportError(err error) *StandardError {
	return newError(ErrCodeTransportFailed, "Notification request failed", err.Error(), false)
}

// NewPartialDispatchFailure describes a mixed results array.
func NewPartialDispatchFailure(success, failure int) *StandardError {
	return newError(ErrCodePartialDispatchFailure, "Some notifications could not be delivered",
		fmt.Sprintf("success: %d, failure: %d", success, failure), false)
}

// NewTotalDispatchFailure describes a dispatch where nothing was delivered.
func NewTotalDispatchFailure(message string) *StandardError {
	return newError(ErrCodeTotalDispatchFailure, "Notification dispatch failed", message, false)
}

// NewCustomerFetchError wraps a failing customer source.
func NewCustomerFetchError(source string, err error) *StandardError {
	return newError(ErrCodeCustomerFetchFailed, fmt.Sprintf("Could not load customers from %s", source),
		err.Error(), true)
}

// NewInputParsingError wraps malformed job variables.
func NewInputParsingError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err.Error(), false)
}

// NewInvalidPrincipalError rejects an unknown principal kind.
func NewInvalidPrincipalError(kind string) *StandardError {
	return newError(ErrCodeInvalidPrincipal, "Unknown principal type", fmt.Sprintf("principalType: %s", kind), false)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended Zeebe retry count for a code.
// Dispatch itself is never retried; only loading the audience is.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCustomerFetchFailed, "EXTERNAL_SERVICE_ERROR":
		return 3
	case "TIMEOUT_ERROR":
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As extracts a *StandardError from err.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of a wrapped StandardError, or "INTERNAL_ERROR".
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsLocal reports whether err is recovered inside the compose flow without
// leaving the Composing state.
func IsLocal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeEmptyAudience, ErrCodeNoRecipients, ErrCodeValidationFailed, ErrCodeBatchTooLarge:
		return true
	}
	return false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeEmptyAudience, ErrCodeNoRecipients:
		return "AUDIENCE"
	case ErrCodeValidationFailed, ErrCodeBatchTooLarge, ErrCodeInputParsingFailed, ErrCodeInvalidPrincipal:
		return "VALIDATION"
	case ErrCodeTransportFailed, ErrCodePartialDispatchFailure, ErrCodeTotalDispatchFailure, ErrCodeSubmitInProgress:
		return "DISPATCH"
	case ErrCodeCustomerFetchFailed:
		return "CUSTOMERS"
	default:
		return "OTHER"
	}
}
