package dates

import (
	"testing"
	"time"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"iso in text", "2024-01-15", "2024-01-15"},
		{"iso with surrounding words", "Event on 2024-01-15 at the hall", "2024-01-15"},
		{"month day year", "January 15, 2024", "2024-01-15"},
		{"abbreviated month", "Jan 15, 2024", "2024-01-15"},
		{"ordinal day", "January 15th, 2024", "2024-01-15"},
		{"day first", "15 January 2024", "2024-01-15"},
		{"day first abbreviated", "15 Jan 2024", "2024-01-15"},
		{"slash us order", "1/15/2024", "2024-01-15"},
		{"slash padded", "01/15/2024", "2024-01-15"},
		{"slash two digit year", "02/15/26", "2026-02-15"},
		{"dot format", "4.4.24", "2024-04-04"},
		{"context word with full date", "playing January 15, 2024", "2024-01-15"},
		{"context word with month day", "played Jan 24", "2024-01-24"},
		{"extra whitespace", "  January  15,  2024  ", "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, raw, ok := Normalize(tt.text, now)
			if !ok {
				t.Fatalf("Normalize(%q) failed, want %s", tt.text, tt.want)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %s, want %s", tt.text, got, tt.want)
			}
			if raw == "" {
				t.Errorf("Normalize(%q) returned empty raw match", tt.text)
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no date", "no date here"},
		{"bare year", "2024"},
		{"street address", "1901 Union St"},
		{"month without day or year", "January"},
		{"month day without context", "Jan 24 doors 8pm"},
		{"year below floor", "January 1, 1899"},
		{"year beyond horizon", "January 1, 2031"},
		{"invalid calendar day", "February 30, 2024"},
		{"month thirteen", "13/45/2024"},
		{"international order rejected by us convention", "15/1/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, raw, ok := Normalize(tt.text, now); ok {
				t.Errorf("Normalize(%q) = %s (raw %q), want rejection", tt.text, got, raw)
			}
		})
	}
}

func TestNormalizeNeverCorruptsAddresses(t *testing.T) {
	// The address-as-date bug: "1901 Union St" must never come back as a
	// calendar date in 1901 or anywhere else.
	for _, text := range []string{
		"1901 Union St, San Francisco",
		"628 Divisadero St",
		"Suite 2024, 17 Broadway",
	} {
		if got, _, ok := Normalize(text, now); ok {
			t.Errorf("Normalize(%q) = %s, want no date", text, got)
		}
	}
}

func TestNormalizeAttr(t *testing.T) {
	tests := []struct {
		name   string
		attr   string
		want   string
		wantOK bool
	}{
		{"plain iso", "2023-10-27", "2023-10-27", true},
		{"iso datetime with zone", "2023-10-27T20:00:00-0400", "2023-10-27", true},
		{"not a date", "tonight", "", false},
		{"out of range", "1899-01-01", "", false},
		{"invalid month", "2023-13-01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeAttr(tt.attr, now)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeAttr(%q) = (%q, %v), want (%q, %v)", tt.attr, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeRawMatchIsLiteral(t *testing.T) {
	text := "The band played The Chapel on January 15, 2024 to a sold-out room"
	_, raw, ok := Normalize(text, now)
	if !ok {
		t.Fatal("expected a date")
	}
	if raw != "January 15, 2024" {
		t.Errorf("raw match = %q, want the literal date text", raw)
	}
}
