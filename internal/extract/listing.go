package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"lastshow/internal/candidate"
	"lastshow/internal/config"
	"lastshow/internal/dates"
	"lastshow/internal/fetch"
	"lastshow/internal/logger"
	"lastshow/internal/metro"
)

// cityStateRe matches "City, ST" location strings inside row text. The
// city side is capped at four capitalized words so it can't swallow half
// the row.
var cityStateRe = regexp.MustCompile(`\b([A-Z][a-zA-Z.'\-]*(?: [A-Z][a-zA-Z.'\-]*){0,3}),\s*([A-Z]{2})\b`)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a listing URL slug from an artist name the way the
// gigography site does: lowercased, runs of non-alphanumerics collapsed to
// a single dash.
func Slugify(artist string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(artist), "-"), "-")
}

// ListingRequest asks for row-scoped extraction of an artist's gigography
// listing.
type ListingRequest struct {
	Artist   string `json:"artist"`
	Slug     string `json:"slug,omitempty"`
	MaxPages int    `json:"maxPages,omitempty"`
}

// Listing extracts one candidate per structural listing row. Fields are
// never pulled from sibling or ancestor rows; the snippet comes from the
// row's own text so the evidence matches the extracted fields.
type Listing struct {
	classifier *metro.Classifier
	client     *fetch.Client
	baseURL    string
	maxPages   int
}

// NewListing builds a listing extractor.
func NewListing(cfg *config.Config, classifier *metro.Classifier, client *fetch.Client) *Listing {
	return &Listing{
		classifier: classifier,
		client:     client,
		baseURL:    cfg.Extract.ListingBaseURL,
		maxPages:   cfg.Extract.MaxListingPages,
	}
}

// Extract walks the artist's gigography pages in order and returns every
// candidate found. Pages that fail to fetch are skipped, not fatal: the
// caller gets whatever the remaining pages yield.
func (l *Listing) Extract(ctx context.Context, req ListingRequest) ([]candidate.Candidate, error) {
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Artist)
	}
	if slug == "" {
		return nil, fmt.Errorf("listing request needs an artist or slug")
	}

	pages := req.MaxPages
	if pages < 1 || pages > l.maxPages {
		pages = l.maxPages
	}

	var all []candidate.Candidate
	for page := 1; page <= pages; page++ {
		pageURL := fmt.Sprintf("%s/artists/%s/gigography?page=%d", l.baseURL, slug, page)
		body, err := l.client.Get(ctx, pageURL)
		if err != nil {
			logger.Warn("listing page fetch failed", logger.Fields{"url": pageURL, "page": page})
			continue
		}
		all = append(all, l.parsePage(bytes.NewReader(body), pageURL)...)
	}

	logger.Info("listing extraction finished", logger.Fields{
		"slug": slug, "pages": pages, "candidates": len(all),
	})
	return candidate.Dedupe(all), nil
}

// parsePage extracts candidates from one listing page. Known row markup is
// preferred; when a page carries none, every structured date anchors a
// nearest-row search instead.
func (l *Listing) parsePage(r io.Reader, pageURL string) []candidate.Candidate {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		logger.Warn("listing page did not parse", logger.Fields{"url": pageURL})
		return nil
	}

	now := time.Now()
	var out []candidate.Candidate

	rows := doc.Find("li.gig-item, div.gig-item")
	if rows.Length() > 0 {
		rows.Each(func(_ int, row *goquery.Selection) {
			if c, ok := l.extractRow(row, pageURL, now); ok {
				out = append(out, c)
			}
		})
		return out
	}

	doc.Find("time[datetime]").Each(func(_ int, t *goquery.Selection) {
		row := nearestRow(t)
		if c, ok := l.extractRow(row, pageURL, now); ok {
			out = append(out, c)
		}
	})
	return out
}

// extractRow pulls exactly one candidate out of a row-scoped fragment.
// It locates the date first, then venue and city via structural hints,
// then falls back to generic text scanning confined to the row. Rows that
// can't produce date, URL, and at least one of venue/city yield nothing.
func (l *Listing) extractRow(row *goquery.Selection, pageURL string, now time.Time) (candidate.Candidate, bool) {
	rowText := squish(row.Text())

	var iso string
	if attr, ok := row.Find("time[datetime]").First().Attr("datetime"); ok {
		iso, _ = dates.NormalizeAttr(attr, now)
	}
	if iso == "" {
		// Fail-soft: unexpected row shape, scan the row's own text.
		var ok bool
		iso, _, ok = dates.Normalize(rowText, now)
		if !ok {
			logger.Debug("row yielded no date", logger.Fields{"url": pageURL, "row": truncateFor(rowText, 120)})
			return candidate.Candidate{}, false
		}
	}

	venue := squish(row.Find(`a[href*="/venues/"]`).First().Text())
	if venue == "" {
		venue = venueFromText(rowText)
	}

	// Snippet scoped to this show's neighborhood within the row, so
	// multi-show rows don't leak sibling text into the evidence.
	window := venueWindow(rowText, venue)

	// Location text is the window with the venue name removed, so a
	// capitalized venue right before "City, ST" can't bleed into the city.
	locText := window
	if venue != "" {
		locText = strings.Replace(locText, venue, "", 1)
	}

	// Layered metro resolution: region-id slug, then City, ST in the
	// venue-scoped window, then token fallback, then whitelist rescue.
	metroID, _ := l.resolveRowMetro(row)
	if metroID == "" {
		if m := cityStateRe.FindString(locText); m != "" {
			metroID, _, _ = l.classifier.MatchToken(m)
		}
	}
	if metroID == "" {
		metroID, _, _ = l.classifier.MatchToken(window)
	}
	if metroID == "" && venue != "" {
		metroID, _ = l.classifier.ClassifyVenue(venue)
	}

	// Metro rows get the metro's display city; only non-metro rows keep
	// the raw City, ST text from the window.
	var city string
	if metroID != "" {
		city = l.classifier.DisplayCity(metroID)
	} else if m := cityStateRe.FindString(locText); m != "" {
		city = m
	}

	if venue == "" && city == "" {
		return candidate.Candidate{}, false
	}
	if upcomingRe.MatchString(rowText) {
		return candidate.Candidate{}, false
	}

	c := candidate.New(iso, city, venue, pageURL, candidate.SourceSongkick, window).
		WithCanceled(canceledRe.MatchString(rowText))
	if metroID != "" {
		c = c.WithMetro(metroID)
	}
	return c, true
}

// resolveRowMetro reads the canonical region-id link inside the row, the
// most reliable metro signal a listing carries.
func (l *Listing) resolveRowMetro(row *goquery.Selection) (string, bool) {
	var id string
	row.Find(`a[href*="/metro-areas/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m, ok := l.classifier.ClassifyPath(href); ok {
			id = m
			return false
		}
		return true
	})
	return id, id != ""
}

// nearestRow climbs from a date node to the closest ancestor that looks
// like one event's row: it holds the date element and at least one link.
// Six levels is as far as listing markup nests in practice.
func nearestRow(node *goquery.Selection) *goquery.Selection {
	p := node
	for i := 0; i < 6; i++ {
		parent := p.Parent()
		if parent.Length() == 0 {
			break
		}
		if parent.Find("time").Length() > 0 && parent.Find("a").Length() > 0 {
			return parent
		}
		p = parent
	}
	if node.Parent().Length() > 0 {
		return node.Parent()
	}
	return node
}

// venueWindow returns a bounded window of row text around the venue
// mention, extended to cover an adjacent "City, ST" match. Rows without a
// locatable venue fall back to the whole row text.
func venueWindow(rowText, venue string) string {
	if venue == "" {
		return rowText
	}
	idx := strings.Index(strings.ToLower(rowText), strings.ToLower(venue))
	if idx < 0 {
		return rowText
	}

	start := idx - 100
	if start < 0 {
		start = 0
	}
	end := idx + len(venue) + 100
	if end > len(rowText) {
		end = len(rowText)
	}
	window := rowText[start:end]

	// Pull a trailing City, ST into the window if the cut split it off.
	if loc := cityStateRe.FindStringIndex(rowText[idx:]); loc != nil && idx+loc[1] > end {
		end = idx + loc[1]
		if end > len(rowText) {
			end = len(rowText)
		}
		window = rowText[start:end]
	}
	return strings.TrimSpace(window)
}

func truncateFor(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
