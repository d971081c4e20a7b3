package metro

import (
	"regexp"
	"strings"

	"lastshow/internal/config"
)

// Classifier decides whether a location reference belongs to a configured
// metro. It is immutable after construction and safe for concurrent use.
type Classifier struct {
	metros []compiledMetro
}

type compiledMetro struct {
	id          string
	displayCity string
	regionIDs   map[string]bool
	tokens      []*regexp.Regexp
	tokenTexts  []string
	venues      map[string]bool
}

var regionSegmentRe = regexp.MustCompile(`^\d+-(?:us-)?(.+)$`)

// NewClassifier compiles the per-metro region ids, token lists, and venue
// whitelists from config.
func NewClassifier(metros []config.Metro) *Classifier {
	c := &Classifier{}
	for _, m := range metros {
		cm := compiledMetro{
			id:          m.ID,
			displayCity: m.DisplayCity,
			regionIDs:   make(map[string]bool, len(m.RegionIDs)),
			venues:      make(map[string]bool, len(m.Venues)),
		}
		for _, id := range m.RegionIDs {
			cm.regionIDs[strings.ToLower(id)] = true
		}
		for _, tok := range m.Tokens {
			// Word-boundary match only: a token "NY" must not hit inside
			// an unrelated word.
			cm.tokens = append(cm.tokens, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(tok)+`\b`))
			cm.tokenTexts = append(cm.tokenTexts, tok)
		}
		for _, v := range m.Venues {
			cm.venues[strings.ToLower(strings.TrimSpace(v))] = true
		}
		c.metros = append(c.metros, cm)
	}
	return c
}

// Classify runs the layered fallback over the available signals and returns
// the metro id. The layers short-circuit in order: canonical region-id path
// segment, free-text city tokens, venue whitelist. ok is false when nothing
// matches.
func (c *Classifier) Classify(city, venue, urlPath string) (string, bool) {
	if urlPath != "" {
		if id, ok := c.ClassifyPath(urlPath); ok {
			return id, true
		}
	}
	if city != "" {
		if id, _, ok := c.MatchToken(city); ok {
			return id, true
		}
	}
	if venue != "" {
		if id, ok := c.ClassifyVenue(venue); ok {
			return id, true
		}
	}
	return "", false
}

// ClassifyPath matches a canonical region-id URL path segment, e.g.
// "/metro-areas/7644-us-new-york-ny". The numeric prefix and optional
// country marker vary per source, so only the trailing slug is compared.
func (c *Classifier) ClassifyPath(urlPath string) (string, bool) {
	for _, seg := range strings.Split(strings.ToLower(urlPath), "/") {
		slug := seg
		if m := regionSegmentRe.FindStringSubmatch(seg); m != nil {
			slug = m[1]
		}
		for _, cm := range c.metros {
			if cm.regionIDs[slug] {
				return cm.id, true
			}
		}
	}
	return "", false
}

// MatchToken scans free text for a metro token on a word boundary and
// returns the metro id plus the configured token that hit, so extractors
// can prove the match inside their snippet.
func (c *Classifier) MatchToken(text string) (string, string, bool) {
	for _, cm := range c.metros {
		for i, re := range cm.tokens {
			if re.MatchString(text) {
				return cm.id, cm.tokenTexts[i], true
			}
		}
	}
	return "", "", false
}

// ClassifyVenue is the whitelist rescue: an exact, case-insensitive venue
// name match classifies by venue alone. This covers pages where the
// location text is missing or ambiguous but the venue is known.
func (c *Classifier) ClassifyVenue(venue string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(venue))
	for _, cm := range c.metros {
		if cm.venues[key] {
			return cm.id, true
		}
	}
	return "", false
}

// DisplayCity returns the configured display city for a metro, used when a
// row classified into a metro carries no parsed city of its own.
func (c *Classifier) DisplayCity(id string) string {
	for _, cm := range c.metros {
		if cm.id == id {
			return cm.displayCity
		}
	}
	return ""
}

// Known reports whether a metro id is configured.
func (c *Classifier) Known(id string) bool {
	for _, cm := range c.metros {
		if cm.id == id {
			return true
		}
	}
	return false
}
