package logging

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"  warn  ", slog.LevelWarn},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FormatOverride(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	if logger := New(); logger == nil {
		t.Fatal("New returned nil")
	}

	t.Setenv("LOG_FORMAT", "text")
	if logger := New(); logger == nil {
		t.Fatal("New returned nil")
	}
}

func TestSetDefault(t *testing.T) {
	logger := SetDefault()
	if logger == nil {
		t.Fatal("SetDefault returned nil")
	}
	if slog.Default() != logger {
		t.Error("SetDefault did not install the logger as default")
	}
}
