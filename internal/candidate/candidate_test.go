package candidate

import (
	"strings"
	"testing"
	"time"
)

func TestPrecedenceLadder(t *testing.T) {
	ladder := []SourceType{
		SourceVenue,
		SourceTicketing,
		SourceArtist,
		SourceSetlist,
		SourceSongkick,
		SourceBandsintown,
		SourcePress,
	}

	for i := 0; i < len(ladder)-1; i++ {
		if ladder[i].Precedence() <= ladder[i+1].Precedence() {
			t.Errorf("expected %s to outrank %s", ladder[i], ladder[i+1])
		}
	}

	if SourceType("wayback").Precedence() != 0 {
		t.Error("unknown source type should rank below every tier")
	}
	if SourceType("wayback").Valid() {
		t.Error("unknown source type should not validate")
	}
}

func TestNewDerivesHostAndCapsSnippet(t *testing.T) {
	long := strings.Repeat("x", SnippetCap+500)
	c := New("2024-01-15", "San Francisco, CA", "The Independent",
		"https://www.songkick.com/concerts/123", SourceSongkick, long)

	if c.SourceHost != "www.songkick.com" {
		t.Errorf("SourceHost = %q, want www.songkick.com", c.SourceHost)
	}
	if len(c.Snippet) != SnippetCap {
		t.Errorf("snippet length = %d, want %d", len(c.Snippet), SnippetCap)
	}
}

func TestWithHelpersDoNotMutate(t *testing.T) {
	c := New("2024-01-15", "", "The Fillmore", "https://example.com", SourceVenue, "The Fillmore 2024-01-15")

	tagged := c.WithMetro("SF")
	if c.Metro != "" {
		t.Error("WithMetro mutated the original candidate")
	}
	if tagged.Metro != "SF" {
		t.Errorf("tagged.Metro = %q, want SF", tagged.Metro)
	}

	archived := c.WithArchived("http://web.archive.org/web/20240101000000/https://example.com")
	if c.Archived || c.URL != "https://example.com" {
		t.Error("WithArchived mutated the original candidate")
	}
	if !archived.Archived {
		t.Error("archived copy should carry the archived flag")
	}
	if !strings.HasPrefix(archived.URL, "http://web.archive.org/") {
		t.Errorf("archived URL = %q, want snapshot URL", archived.URL)
	}
}

func TestUsable(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{
			name: "valid",
			c:    New("2024-01-15", "San Francisco, CA", "The Independent", "https://example.com", SourceVenue, "snippet"),
			want: true,
		},
		{
			name: "missing date",
			c:    New("", "San Francisco, CA", "The Independent", "https://example.com", SourceVenue, "snippet"),
			want: false,
		},
		{
			name: "malformed date",
			c:    New("January 15", "San Francisco, CA", "", "https://example.com", SourceVenue, "snippet"),
			want: false,
		},
		{
			name: "year below floor",
			c:    New("1899-12-31", "San Francisco, CA", "", "https://example.com", SourceVenue, "snippet"),
			want: false,
		},
		{
			name: "year beyond horizon",
			c:    New("2027-01-01", "San Francisco, CA", "", "https://example.com", SourceVenue, "snippet"),
			want: false,
		},
		{
			name: "no city or venue",
			c:    New("2024-01-15", "", "", "https://example.com", SourceVenue, "snippet"),
			want: false,
		},
		{
			name: "no snippet",
			c:    New("2024-01-15", "San Francisco, CA", "", "https://example.com", SourceVenue, ""),
			want: false,
		},
		{
			name: "no url",
			c:    New("2024-01-15", "San Francisco, CA", "", "", SourceVenue, "snippet"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Usable(now); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := New("2024-01-15", "Oakland, CA", "", "https://example.com", SourcePress, "snippet")
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	bad := good
	bad.SourceType = "blog"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown sourceType")
	}

	bad = good
	bad.URL = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestDedupe(t *testing.T) {
	a := New("2024-01-15", "San Francisco, CA", "The Independent", "https://www.songkick.com/a", SourceSongkick, "first seen")
	sameEvent := New("2024-01-15", "san francisco,  ca", "THE INDEPENDENT", "https://www.songkick.com/b", SourceSongkick, "case and spacing differ")
	otherHost := New("2024-01-15", "San Francisco, CA", "The Independent", "https://www.bandsintown.com/a", SourceBandsintown, "different host")
	otherDate := New("2024-01-16", "San Francisco, CA", "The Independent", "https://www.songkick.com/c", SourceSongkick, "different night")

	out := Dedupe([]Candidate{a, sameEvent, otherHost, otherDate})

	if len(out) != 3 {
		t.Fatalf("Dedupe returned %d candidates, want 3", len(out))
	}
	if out[0].Snippet != "first seen" {
		t.Error("first-seen candidate should be the surviving representative")
	}

	// Idempotent: a second pass changes nothing.
	again := Dedupe(out)
	if len(again) != len(out) {
		t.Errorf("second Dedupe pass changed the set: %d -> %d", len(out), len(again))
	}
	for i := range out {
		if again[i] != out[i] {
			t.Errorf("second Dedupe pass reordered or replaced candidate %d", i)
		}
	}
}
