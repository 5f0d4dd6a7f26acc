package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Options{Level: "warn", Writer: &buf, Component: "sequencer"})
	lg.Info("hidden")
	lg.Warn("grid resize rejected", "rows", 1)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "sequencer" || entry["msg"] != "grid resize rejected" {
		t.Errorf("Unexpected log entry %v", entry)
	}
}
