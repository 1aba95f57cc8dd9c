package observability

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity, whitespace
// and the caller's fallback.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env      string
		fallback zapcore.Level
		expect   zapcore.Level
	}{
		{"", zap.InfoLevel, zap.InfoLevel},
		{"", zap.WarnLevel, zap.WarnLevel},
		{"INFO", zap.WarnLevel, zap.InfoLevel},
		{"DEBUG", zap.InfoLevel, zap.DebugLevel},
		{"WARN", zap.InfoLevel, zap.WarnLevel},
		{"ERROR", zap.InfoLevel, zap.ErrorLevel},
		{"debug", zap.InfoLevel, zap.DebugLevel},
		{"  warn  ", zap.InfoLevel, zap.WarnLevel},
		{"invalid", zap.InfoLevel, zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env, tt.fallback)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q, %v) = %v, want %v", tt.env, tt.fallback, got, tt.expect)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}

	logger.Info("test message")
	_ = logger.Sync() // best-effort; can fail on /dev/stderr in test env
}

func TestNewCLILogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	logger, err := NewCLILogger()
	if err != nil {
		t.Fatalf("NewCLILogger() error = %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Error("CLI logger should default to warn level")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Error("CLI logger should log warnings")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger unchanged")
	}
}
