// Package errors provides standardized error handling for the catalog API and enrichment jobs.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidID         ErrorCode = "INVALID_ID"
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAttrType   ErrorCode = "INVALID_ATTRIBUTE_TYPE"
	ErrCodeResourceNotFound  ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDuplicateResource ErrorCode = "DUPLICATE_RESOURCE"

	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed    ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeAIServiceFailed  ErrorCode = "AI_SERVICE_FAILED"
	ErrCodeAIResponseFailed ErrorCode = "AI_RESPONSE_INVALID"
	ErrCodeAITimeout        ErrorCode = "AI_TIMEOUT"

	ErrCodeEnrichmentUnavailable ErrorCode = "ENRICHMENT_UNAVAILABLE"
	ErrCodeInternalError         ErrorCode = "INTERNAL_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another StandardError with the same code. A target with a
// message must match it too.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidIDError is returned when a path ID is not an integer.
func NewInvalidIDError(resource string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidID,
		Message:   fmt.Sprintf("Invalid %s ID", resource),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError covers malformed bodies and missing required fields.
func NewInvalidRequestError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError is returned when a payload breaks a schema rule.
func NewValidationFailedError(message string, fields []string) *StandardError {
	err := &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	if len(fields) > 0 {
		err.Details = strings.Join(fields, "; ")
		err.Metadata = map[string]interface{}{"fields": fields}
	}
	return err
}

// NewInvalidAttributeTypeError lists the accepted types.
func NewInvalidAttributeTypeError(validTypes []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidAttrType,
		Message:   fmt.Sprintf("Invalid attribute type. Must be one of: %s", strings.Join(validTypes, ", ")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResourceNotFoundError creates a non-retryable not found error.
func NewResourceNotFoundError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateResourceError is returned on a unique key conflict.
func NewDuplicateResourceError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateResource,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAIServiceError wraps a failed completion call.
func NewAIServiceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIServiceFailed,
		Message:   "AI service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAIResponseError is returned for empty or non-JSON completions.
func NewAIResponseError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIResponseFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAITimeoutError creates a retryable AI timeout error.
func NewAITimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeAITimeout,
		Message:   "AI service timeout",
		Details:   fmt.Sprintf("call exceeded %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEnrichmentUnavailableError is returned when the job pool no longer
// accepts work, e.g. during shutdown.
func NewEnrichmentUnavailableError(jobID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeEnrichmentUnavailable,
		Message:   "Enrichment is unavailable, try again later",
		Details:   fmt.Sprintf("jobId: %d", jobID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeAIServiceFailed,
		ErrCodeAITimeout,
		ErrCodeEnrichmentUnavailable:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.HasPrefix(codeStr, "AI_"):
		return "AI"
	case strings.Contains(codeStr, "UNAVAILABLE"):
		return "CAPACITY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") ||
		strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "NOT_FOUND"):
		return "CLIENT"
	default:
		return "OTHER"
	}
}
