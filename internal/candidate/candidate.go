package candidate

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SnippetCap bounds the length of evidence snippets stored on a candidate.
const SnippetCap = 1000

// DateLayout is the wire format for candidate dates.
const DateLayout = "2006-01-02"

// SourceType identifies the trust tier of the page a candidate came from.
type SourceType string

const (
	SourceVenue       SourceType = "venue"
	SourceTicketing   SourceType = "ticketing"
	SourceArtist      SourceType = "artist"
	SourceSetlist     SourceType = "setlist"
	SourceSongkick    SourceType = "songkick"
	SourceBandsintown SourceType = "bandsintown"
	SourcePress       SourceType = "press"
)

// precedence is the fixed trust ladder used to break same-date ties.
// Higher means more trusted.
var precedence = map[SourceType]int{
	SourceVenue:       7,
	SourceTicketing:   6,
	SourceArtist:      5,
	SourceSetlist:     4,
	SourceSongkick:    3,
	SourceBandsintown: 2,
	SourcePress:       1,
}

// Precedence returns the trust rank of a source type. Unknown types rank
// below every known tier.
func (s SourceType) Precedence() int {
	return precedence[s]
}

// Valid reports whether the source type is one of the closed set.
func (s SourceType) Valid() bool {
	_, ok := precedence[s]
	return ok
}

// Candidate is a normalized, evidence-backed claim that an event occurred.
// Candidates are immutable once constructed; corrections produce a new
// value via the With* helpers.
type Candidate struct {
	Date       string     `json:"date,omitempty"` // YYYY-MM-DD, empty when no usable date
	City       string     `json:"city,omitempty"`
	Venue      string     `json:"venue,omitempty"`
	URL        string     `json:"url"`
	SourceType SourceType `json:"sourceType"`
	Snippet    string     `json:"snippet"`
	Canceled   bool       `json:"canceled,omitempty"`
	SourceHost string     `json:"sourceHost,omitempty"`
	Metro      string     `json:"metro,omitempty"`
	Archived   bool       `json:"archived,omitempty"`
}

// New creates a Candidate with SourceHost derived from the URL and the
// snippet truncated to SnippetCap.
func New(date, city, venue, pageURL string, source SourceType, snippet string) Candidate {
	return Candidate{
		Date:       date,
		City:       city,
		Venue:      venue,
		URL:        pageURL,
		SourceType: source,
		Snippet:    truncate(snippet, SnippetCap),
		SourceHost: HostOf(pageURL),
	}
}

// WithMetro returns a copy of the candidate tagged with a metro id.
func (c Candidate) WithMetro(metro string) Candidate {
	c.Metro = metro
	return c
}

// WithCanceled returns a copy of the candidate with the canceled flag set.
func (c Candidate) WithCanceled(canceled bool) Candidate {
	c.Canceled = canceled
	return c
}

// WithArchived returns a copy marked as sourced from an archived snapshot.
// The snapshot URL replaces the live URL so evidence points at the capture.
func (c Candidate) WithArchived(snapshotURL string) Candidate {
	c.Archived = true
	c.URL = snapshotURL
	return c
}

// ParseDate returns the candidate's calendar date. ok is false when the
// date is absent or malformed.
func (c Candidate) ParseDate() (time.Time, bool) {
	if c.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, c.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Usable reports whether the candidate can enter selection: it needs a
// calendar-valid date within the sane year range, a URL, a snippet, and at
// least one of city/venue.
func (c Candidate) Usable(now time.Time) bool {
	if c.URL == "" || c.Snippet == "" {
		return false
	}
	if c.City == "" && c.Venue == "" {
		return false
	}
	t, ok := c.ParseDate()
	if !ok {
		return false
	}
	return t.Year() >= 1900 && t.Year() <= now.Year()+2
}

// Validate checks the required wire fields and returns a client-facing
// error describing the first problem found.
func (c Candidate) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("candidate missing url")
	}
	if c.Snippet == "" {
		return fmt.Errorf("candidate missing snippet")
	}
	if c.SourceType == "" {
		return fmt.Errorf("candidate missing sourceType")
	}
	if !c.SourceType.Valid() {
		return fmt.Errorf("unknown sourceType %q", c.SourceType)
	}
	return nil
}

// HostOf extracts the network authority from a page URL. Returns "" for
// unparseable input.
func HostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
