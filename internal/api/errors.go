package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	apperrors "catalog-enrichment/internal/common/errors"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/validation"

	"github.com/labstack/echo/v4"
)

const retryAfterSeconds = "5"

// errorHandler renders every failure as {code, message, details?}.
func errorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   apperrors.Response
		)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			body = apperrors.Response{Code: codeForStatus(status), Message: fmt.Sprint(he.Message)}
		} else {
			status, body = apperrors.ToResponse(err)
		}

		if status >= http.StatusInternalServerError {
			log.Error("request error", map[string]interface{}{
				"path":      c.Path(),
				"code":      string(body.Code),
				"category":  apperrors.GetErrorCategory(body.Code),
				"retryable": apperrors.IsRetryableErrorCode(body.Code),
				"error":     err.Error(),
			})
		}
		if status == http.StatusServiceUnavailable && apperrors.IsRetryableErrorCode(body.Code) {
			c.Response().Header().Set("Retry-After", retryAfterSeconds)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("failed to write error response", map[string]interface{}{"error": err.Error()})
		}
	}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return apperrors.ErrCodeResourceNotFound
	case status < http.StatusInternalServerError:
		return apperrors.ErrCodeInvalidRequest
	default:
		return apperrors.ErrCodeInternalError
	}
}

func parseID(c echo.Context, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidIDError(resource)
	}
	return id, nil
}

// readBody returns the raw request body. An empty body reads as {}.
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

func validateBody(schema string, body []byte) (*validation.ValidationResult, error) {
	result, err := validation.Validate(schema, body)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("Request body must be a JSON object", err.Error())
	}
	return result, nil
}

func missing(result *validation.ValidationResult, fields ...string) bool {
	for _, field := range fields {
		for _, e := range result.GetErrorsForField(field) {
			if e.Code == "REQUIRED" {
				return true
			}
		}
	}
	return false
}
