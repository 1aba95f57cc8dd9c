package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationID(ctx); got != "" {
		t.Errorf("CorrelationID(empty) = %q, want empty", got)
	}
	ctx = WithCorrelationID(ctx, "abc-123")
	if got := CorrelationID(ctx); got != "abc-123" {
		t.Errorf("CorrelationID() = %q, want abc-123", got)
	}
}

func TestLoggerFrom(t *testing.T) {
	fallback := zap.NewExample()
	if LoggerFrom(context.Background(), fallback) != fallback {
		t.Error("LoggerFrom without logger should return fallback")
	}
	scoped := zap.NewNop()
	ctx := WithLogger(context.Background(), scoped)
	if LoggerFrom(ctx, fallback) != scoped {
		t.Error("LoggerFrom should return the request-scoped logger")
	}
}
