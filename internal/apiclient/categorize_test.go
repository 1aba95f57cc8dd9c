package apiclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct ErrorCategory
// for metrics labeling, including typed errors, wrapped errors, and message-based heuristics.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"network wrapping deadline", &NetworkError{URL: "u", Err: context.DeadlineExceeded}, ErrorCategoryTimeout},
		{"network", &NetworkError{URL: "u", Err: errors.New("connection refused")}, ErrorCategoryNetwork},
		{"misconfigured", &ConfigError{Endpoint: "/plans", Status: 200, ContentType: "text/html"}, ErrorCategoryMisconfigured},
		{"validation", &schema.ValidationError{Entity: "plan"}, ErrorCategoryValidation},
		{"401", &HTTPError{Status: 401}, ErrorCategoryUnauthorized},
		{"403", &HTTPError{Status: 403}, ErrorCategoryForbidden},
		{"404 wrapped", fmt.Errorf("load: %w", &HTTPError{Status: 404}), ErrorCategoryNotFound},
		{"409", &HTTPError{Status: 409}, ErrorCategoryClientError},
		{"429", &HTTPError{Status: 429}, ErrorCategoryRateLimited},
		{"500", &HTTPError{Status: 500}, ErrorCategoryUpstream5xx},
		{"decode in message", errors.New("decode user: empty response body"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	if _, ok := StatusCode(errors.New("x")); ok {
		t.Error("StatusCode(plain error) ok = true")
	}
	if s, ok := StatusCode(fmt.Errorf("w: %w", &HTTPError{Status: 418})); !ok || s != 418 {
		t.Errorf("StatusCode(HTTPError) = %d, %v", s, ok)
	}
	if s, ok := StatusCode(&ConfigError{Status: 502}); !ok || s != 502 {
		t.Errorf("StatusCode(ConfigError) = %d, %v", s, ok)
	}
}
