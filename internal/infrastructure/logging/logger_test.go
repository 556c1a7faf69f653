package logging

import (
	"log/slog"
	"testing"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
)

func TestNew_ReturnsLogger(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}
	logger := New(cfg, "test")
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.Logger == nil {
		t.Fatal("New() returned Logger with nil slog.Logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWith_ReturnsNewLogger(t *testing.T) {
	logger := Default()
	child := logger.With("component", "test")
	if child == nil {
		t.Fatal("With() returned nil")
	}
	if child == logger {
		t.Error("With() returned the same logger instance")
	}
}

func TestDefault_DoesNotPanic(t *testing.T) {
	logger := Default()
	logger.Info("default logger works")
}
