package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"lastshow/internal/candidate"
	"lastshow/internal/config"
	"lastshow/internal/fetch"
	"lastshow/internal/metro"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

func newTestListing(cfg *config.Config, client *fetch.Client) *Listing {
	return NewListing(cfg, metro.NewClassifier(cfg.Metros), client)
}

func TestParsePageGigography(t *testing.T) {
	data := loadFixture(t, "gigography.html")
	l := newTestListing(config.Default(), nil)

	got := l.parsePage(strings.NewReader(string(data)), "https://www.songkick.com/artists/sharon-jones/gigography?page=1")

	want := []struct {
		date     string
		metroID  string
		city     string
		venue    string
		canceled bool
	}{
		{"2023-10-27", "NYC", "New York, NY", "Bowery Ballroom", false},
		{"2024-03-03", "SF", "San Francisco, CA", "The Chapel", false},
		{"2024-01-20", "", "Los Angeles, CA", "The Troubadour", false},
		{"2024-04-12", "NYC", "New York, NY", "Brooklyn Steel", true},
	}
	if len(got) != len(want) {
		for _, c := range got {
			t.Logf("got candidate: %s %s %s", c.Date, c.Venue, c.City)
		}
		t.Fatalf("candidates = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		c := got[i]
		if c.Date != w.date || c.Metro != w.metroID || c.City != w.city || c.Venue != w.venue || c.Canceled != w.canceled {
			t.Errorf("row %d = {date %s, metro %q, city %q, venue %q, canceled %v}, want %+v",
				i, c.Date, c.Metro, c.City, c.Venue, c.Canceled, w)
		}
		if c.SourceType != candidate.SourceSongkick {
			t.Errorf("row %d source = %s, want songkick", i, c.SourceType)
		}
		if !strings.Contains(c.Snippet, w.venue) {
			t.Errorf("row %d snippet %q does not mention the venue", i, c.Snippet)
		}
	}
}

func TestParsePageSkipsUpcomingAndDateless(t *testing.T) {
	data := loadFixture(t, "gigography.html")
	l := newTestListing(config.Default(), nil)

	got := l.parsePage(strings.NewReader(string(data)), "https://www.songkick.com/x")

	for _, c := range got {
		if c.Venue == "The Fillmore" {
			t.Errorf("presale row leaked through: %+v", c)
		}
		if c.Venue == "Somewhere Hall" {
			t.Errorf("dateless row leaked through: %+v", c)
		}
	}
}

func TestParsePageNearestRowFallback(t *testing.T) {
	data := loadFixture(t, "unstructured_rows.html")
	l := newTestListing(config.Default(), nil)

	got := l.parsePage(strings.NewReader(string(data)), "https://example.com/past-shows")

	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Date != "2023-11-18" || got[0].Venue != "Great American Music Hall" || got[0].Metro != "SF" {
		t.Errorf("first candidate = %+v", got[0])
	}
	if got[1].Date != "2023-12-02" || got[1].Venue != "Mercury Lounge" || got[1].Metro != "NYC" {
		t.Errorf("second candidate = %+v", got[1])
	}
}

func TestExtractPaginatesAndSkipsFailedPages(t *testing.T) {
	page1 := loadFixture(t, "gigography.html")

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write(page1)
		case "2":
			http.Error(w, "gone", http.StatusNotFound)
		default:
			fmt.Fprint(w, "<html><body><ul></ul></body></html>")
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Extract.ListingBaseURL = srv.URL
	cfg.Extract.MaxListingPages = 3
	cfg.HTTP.MaxRetries = 0
	cfg.HTTP.CacheTTLDays = 0

	l := newTestListing(cfg, fetch.New(cfg.HTTP))
	got, err := l.Extract(context.Background(), ListingRequest{Artist: "Sharon Jones"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(requests) != 3 {
		t.Errorf("requests = %d (%v), want one per page", len(requests), requests)
	}
	if want := "/artists/sharon-jones/gigography?page=1"; requests[0] != want {
		t.Errorf("first request = %s, want %s", requests[0], want)
	}
	// The failed page is skipped, not fatal.
	if len(got) != 4 {
		t.Errorf("candidates = %d, want the 4 from page 1", len(got))
	}
}

func TestExtractRejectsEmptyRequest(t *testing.T) {
	l := newTestListing(config.Default(), nil)
	if _, err := l.Extract(context.Background(), ListingRequest{}); err == nil {
		t.Fatal("expected an error for a request with no artist or slug")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sharon Jones & the Dap-Kings", "sharon-jones-the-dap-kings"},
		{"LCD Soundsystem", "lcd-soundsystem"},
		{"A$AP Rocky", "a-ap-rocky"},
		{"  Beach House  ", "beach-house"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVenueWindow(t *testing.T) {
	row := strings.Repeat("x ", 80) + "Sharon Jones at The Chapel San Francisco, CA, US " + strings.Repeat("y ", 80)

	window := venueWindow(row, "The Chapel")

	if !strings.Contains(window, "The Chapel") {
		t.Fatalf("window %q lost the venue", window)
	}
	if !strings.Contains(window, "San Francisco, CA") {
		t.Errorf("window %q lost the adjacent city", window)
	}
	if len(window) >= len(row) {
		t.Errorf("window was not bounded: %d chars", len(window))
	}
}
