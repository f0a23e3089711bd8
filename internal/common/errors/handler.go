// internal/common/errors/handler.go
package errors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error code onto the response status used by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidID, ErrCodeInvalidRequest, ErrCodeValidationFailed, ErrCodeInvalidAttrType:
		return http.StatusBadRequest
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateResource:
		return http.StatusConflict
	case ErrCodeEnrichmentUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// Response is the JSON body written for a failed request.
type Response struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  map[string]interface{} `json:"metadata,omitempty"`
}

// ToResponse converts err to its status code and body. Internal error
// details are not exposed to clients.
func ToResponse(err error) (int, Response) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	resp := Response{
		Code:    stdErr.Code,
		Message: stdErr.Message,
		Details: stdErr.Details,
		Fields:  stdErr.Metadata,
	}
	if status >= http.StatusInternalServerError && stdErr.Code != ErrCodeEnrichmentUnavailable {
		resp.Details = ""
	}
	return status, resp
}
