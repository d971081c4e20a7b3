package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "selected winner",
			fields:  Fields{"metro": "SF"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "date rejected",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "fetch failed",
			err:     errors.New("timeout"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := buf.Len()
			l.log(tt.level, tt.message, tt.fields, tt.err)
			logged := buf.Len() > before
			if logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}
}

func TestLoggerEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelDebug, &buf)

	l.Warn("venue whitelist miss", Fields{"venue": "The Chapel", "metro": "NYC"})

	line := strings.TrimSpace(buf.String())
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not a JSON line: %v (%q)", err, line)
	}
	if entry.Level != "WARN" {
		t.Errorf("level = %q, want WARN", entry.Level)
	}
	if entry.Message != "venue whitelist miss" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Fields["venue"] != "The Chapel" {
		t.Errorf("fields = %v, want venue field preserved", entry.Fields)
	}
	if entry.Timestamp == "" {
		t.Error("timestamp should be set")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
