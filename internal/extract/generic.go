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
	"golang.org/x/net/html"

	"lastshow/internal/candidate"
	"lastshow/internal/config"
	"lastshow/internal/dates"
	"lastshow/internal/fetch"
	"lastshow/internal/logger"
	"lastshow/internal/metro"
)

var (
	// Quick filter for text that could plausibly hold a date. Full parsing
	// happens in the dates package; this just keeps the node scan cheap.
	dateHintRe = regexp.MustCompile(`(?i)\d{4}|\d{1,2}[/.]\d{1,2}|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`)

	canceledRe = regexp.MustCompile(`(?i)\b(canceled|cancelled|postponed|rescheduled)\b`)
	upcomingRe = regexp.MustCompile(`(?i)\b(upcoming|on[- ]sale|presale|pre-sale|tickets available|buy tickets)\b`)

	venuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bat\s+([^,\n.]+?)(?:\s+in\b|,|\.|$)`),
		regexp.MustCompile(`—\s*([^,\n.]+?)(?:,|\.|$)`),
		regexp.MustCompile(`@\s*([^,\n.]+?)(?:,|\.|$)`),
		regexp.MustCompile(`(?i)\bvenue[:\s]+([^,\n.]+?)(?:,|\.|$)`),
	}
)

// Generic extracts candidates from arbitrary page HTML by scanning a
// bounded number of text-bearing nodes for date and location
// co-occurrence.
type Generic struct {
	classifier *metro.Classifier
	hosts      map[string][]string
	nodeCap    int
	client     *fetch.Client
}

// NewGeneric builds a generic extractor. client may be nil when only
// Extract (pre-fetched content) is used.
func NewGeneric(cfg *config.Config, classifier *metro.Classifier, client *fetch.Client) *Generic {
	return &Generic{
		classifier: classifier,
		hosts:      cfg.SourceHosts,
		nodeCap:    cfg.Extract.NodeScanCap,
		client:     client,
	}
}

// ExtractURL fetches a page and extracts candidates from it.
func (g *Generic) ExtractURL(ctx context.Context, pageURL, artistHint string) ([]candidate.Candidate, error) {
	body, err := g.client.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	return g.Extract(bytes.NewReader(body), pageURL, artistHint)
}

// Extract scans page content for candidates. Every emitted candidate's
// snippet literally contains the date text and at least one of venue/city:
// no candidate without proof in its own snippet.
func (g *Generic) Extract(r io.Reader, pageURL, artistHint string) ([]candidate.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	sourceType := InferSourceType(pageURL, g.hosts)
	now := time.Now()

	var out []candidate.Candidate
	dropped := 0
	for _, node := range g.collectNodes(doc) {
		c, ok := g.extractNode(node, pageURL, sourceType, now)
		if !ok {
			dropped++
			continue
		}
		out = append(out, c)
	}

	out = candidate.Dedupe(out)
	logger.Debug("generic extraction finished", logger.Fields{
		"url":        pageURL,
		"candidates": len(out),
		"dropped":    dropped,
		"artist":     artistHint,
	})
	return out, nil
}

// collectNodes gathers date-bearing nodes: structured <time datetime>
// elements first, then text elements that hint at a date, capped at
// nodeCap to bound cost on large pages. Oversized container nodes are
// skipped so the scan stays close to the leaves that actually carry the
// date text.
func (g *Generic) collectNodes(doc *goquery.Document) []*goquery.Selection {
	var nodes []*goquery.Selection
	seen := make(map[*html.Node]bool)

	add := func(sel *goquery.Selection) bool {
		n := sel.Get(0)
		if seen[n] {
			return len(nodes) < g.nodeCap
		}
		seen[n] = true
		nodes = append(nodes, sel)
		return len(nodes) < g.nodeCap
	}

	doc.Find("time[datetime]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		return add(sel)
	})
	if len(nodes) >= g.nodeCap {
		return nodes
	}

	doc.Find("span, div, p, li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if len(text) > 400 || !dateHintRe.MatchString(text) {
			return true
		}
		return add(sel)
	})
	return nodes
}

// extractNode turns one date-bearing node and its bounded neighborhood
// into a candidate, or reports false when the evidence contract cannot be
// met.
func (g *Generic) extractNode(sel *goquery.Selection, pageURL string, sourceType candidate.SourceType, now time.Time) (candidate.Candidate, bool) {
	nodeText := squish(sel.Text())

	var iso, dateText string
	if attr, ok := sel.Attr("datetime"); ok {
		iso, ok = dates.NormalizeAttr(attr, now)
		if !ok {
			return candidate.Candidate{}, false
		}
		// The visible text is the evidence for a structured date. A bare
		// datetime node has no text of its own; the human-readable date
		// then lives in the surrounding prose, so pull it from the parent.
		dateText = nodeText
		if dateText == "" {
			if _, raw, found := dates.Normalize(squish(sel.Parent().Text()), now); found {
				dateText = raw
			}
		}
	} else {
		var ok bool
		iso, dateText, ok = dates.Normalize(nodeText, now)
		if !ok {
			return candidate.Candidate{}, false
		}
	}

	// Pre-show language means this is not past-show evidence. Scoped to
	// the node itself so one on-sale blurb doesn't poison the whole page.
	if upcomingRe.MatchString(nodeText) {
		return candidate.Candidate{}, false
	}
	canceled := canceledRe.MatchString(nodeText)

	// Bounded neighborhood: the node itself, its parent, its grandparent.
	neighborhood := []string{nodeText, squish(sel.Parent().Text()), squish(sel.Parent().Parent().Text())}

	var city, venue, metroID string
	for _, text := range neighborhood {
		if id, token, ok := g.classifier.MatchToken(text); ok {
			metroID, city = id, token
			break
		}
	}
	for _, text := range neighborhood {
		if v := venueFromText(text); v != "" {
			venue = v
			break
		}
	}
	if city == "" && venue == "" {
		return candidate.Candidate{}, false
	}

	snippet, ok := evidenceSnippet(neighborhood, dateText, venue, city)
	if !ok {
		return candidate.Candidate{}, false
	}

	c := candidate.New(iso, city, venue, pageURL, sourceType, snippet).WithCanceled(canceled)
	if metroID != "" {
		c = c.WithMetro(metroID)
	}
	return c, true
}

// evidenceSnippet picks the smallest neighborhood text that literally
// contains the date text and at least one of venue/city.
func evidenceSnippet(neighborhood []string, dateText, venue, city string) (string, bool) {
	for _, text := range neighborhood {
		if text == "" || dateText == "" || !containsFold(text, dateText) {
			continue
		}
		if (venue != "" && containsFold(text, venue)) || (city != "" && containsFold(text, city)) {
			return text, true
		}
	}
	return "", false
}

// venueFromText extracts a venue name from prose ("at The Chapel",
// "@ Brooklyn Steel", "venue: Mercury Lounge"). Matches outside a sane
// name length are ignored.
func venueFromText(text string) string {
	for _, re := range venuePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			v := strings.TrimSpace(m[1])
			if len(v) > 3 && len(v) < 100 {
				return v
			}
		}
	}
	return ""
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// squish collapses runs of whitespace so snippets read like the page text.
func squish(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
