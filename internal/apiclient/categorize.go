package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the apiErrorsTotal label.
const (
	ErrorCategoryTimeout       ErrorCategory = "timeout"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryUnauthorized  ErrorCategory = "unauthorized"
	ErrorCategoryForbidden     ErrorCategory = "forbidden"
	ErrorCategoryNotFound      ErrorCategory = "not_found"
	ErrorCategoryRateLimited   ErrorCategory = "rate_limited"
	ErrorCategoryClientError   ErrorCategory = "client_error"
	ErrorCategoryUpstream5xx   ErrorCategory = "upstream_5xx"
	ErrorCategoryMisconfigured ErrorCategory = "misconfigured"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryParsing       ErrorCategory = "parsing"
	ErrorCategoryUnknown       ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrNetwork) {
		return ErrorCategoryNetwork
	}
	if errors.Is(err, ErrMisconfigured) {
		return ErrorCategoryMisconfigured
	}
	if errors.Is(err, schema.ErrInvalid) {
		return ErrorCategoryValidation
	}

	if status, ok := StatusCode(err); ok {
		switch {
		case status == http.StatusUnauthorized:
			return ErrorCategoryUnauthorized
		case status == http.StatusForbidden:
			return ErrorCategoryForbidden
		case status == http.StatusNotFound:
			return ErrorCategoryNotFound
		case status == http.StatusTooManyRequests:
			return ErrorCategoryRateLimited
		case status >= 500:
			return ErrorCategoryUpstream5xx
		case status >= 400:
			return ErrorCategoryClientError
		}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "decode") || strings.Contains(errStr, "parse") || strings.Contains(errStr, "encode") {
		return ErrorCategoryParsing
	}

	return ErrorCategoryUnknown
}
