package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		// Lowercase
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},

		// Uppercase
		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},

		// Mixed case
		{"Debug", LevelDebug},
		{"Info", LevelInfo},
		{"Warn", LevelWarn},
		{"Warning", LevelWarn},
		{"Error", LevelError},
		{"dEbUg", LevelDebug},

		// Empty string defaults to Info
		{"", LevelInfo},

		// Unrecognized defaults to Info
		{"trace", LevelInfo},
		{"fatal", LevelInfo},
		{"unknown", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"TEXT", FormatText},
		{"", FormatText},
		{"yaml", FormatText}, // unrecognized defaults to text
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseFormat(tt.input)
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		t.Setenv(EnvLevel, "debug")
		t.Setenv(EnvFormat, "JSON")

		cfg := FromEnv(DefaultConfig())
		if cfg.Level != LevelDebug {
			t.Errorf("Level = %v, want debug", cfg.Level)
		}
		if cfg.Format != FormatJSON {
			t.Errorf("Format = %v, want json", cfg.Format)
		}
	})

	t.Run("unset keeps config", func(t *testing.T) {
		cfg := FromEnv(Config{Level: LevelError, Format: FormatText})
		if cfg.Level != LevelError || cfg.Format != FormatText {
			t.Errorf("FromEnv changed config: %+v", cfg)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})
		logger.Debug("hidden")
		logger.Info("chaos event", "event", "delay", "target", "fetch", "delay_ms", 120)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if rec["event"] != "delay" || rec["target"] != "fetch" || rec["delay_ms"] != float64(120) {
			t.Errorf("record = %v", rec)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		New(Config{Level: LevelWarn, Output: &buf}).Warn("circuit open", "name", "payments")
		if !strings.Contains(buf.String(), "name=payments") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), LevelError) {
		t.Error("Nop logger should not be enabled")
	}
}
