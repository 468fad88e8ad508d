package app

import (
	"testing"

	"github.com/rs/zerolog"
)

// TestDetermineLogLevel tests the log level precedence logic.
func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{"default level when no flags set", &Config{}, "info"},
		{"verbose flag sets debug", &Config{Verbose: true}, "debug"},
		{"quiet flag sets warn", &Config{Quiet: true}, "warn"},
		{"quiet wins over verbose", &Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit log-level overrides verbose", &Config{LogLevel: "error", Verbose: true}, "error"},
		{"explicit log-level overrides quiet", &Config{LogLevel: "trace", Quiet: true}, "trace"},
		{"invalid log-level falls back to info", &Config{LogLevel: "loud"}, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineLogLevel(tt.config); got != tt.expected {
				t.Errorf("determineLogLevel() = %s, want %s", got, tt.expected)
			}
		})
	}
}

// TestValidateLogLevel tests level validation.
func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		if got := validateLogLevel(level); got != level {
			t.Errorf("validateLogLevel(%s) = %s", level, got)
		}
	}
	for _, level := range []string{"", "DEBUG", "fatal", "verbose"} {
		if got := validateLogLevel(level); got != "info" {
			t.Errorf("validateLogLevel(%q) = %s, want info", level, got)
		}
	}
}

// TestNewLogger verifies the logger honours the resolved level.
func TestNewLogger(t *testing.T) {
	tests := []struct {
		config *Config
		want   zerolog.Level
	}{
		{&Config{LogFormat: "json", LogOutput: "stderr"}, zerolog.InfoLevel},
		{&Config{LogFormat: "json", LogOutput: "stderr", Verbose: true}, zerolog.DebugLevel},
		{&Config{LogFormat: "json", LogOutput: "stderr", LogLevel: "error"}, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		logger := NewLogger(tt.config)
		if logger.GetLevel() != tt.want {
			t.Errorf("level = %s, want %s", logger.GetLevel(), tt.want)
		}
	}
}
