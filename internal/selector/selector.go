package selector

import (
	"sort"
	"strings"
	"time"

	"lastshow/internal/candidate"
	"lastshow/internal/logger"
	"lastshow/internal/metro"
)

const (
	// evidenceSnippetCap bounds snippets in responses; the full snippet
	// stays on the candidate.
	evidenceSnippetCap = 200

	// nearTieWindowDays is the near-tie correction window: a strictly
	// more authoritative candidate this many days before the latest date
	// beats the later but weaker one.
	nearTieWindowDays = 3

	maxAlternates = 3
)

// Evidence is a URL plus the snippet proving a claim, with the claimed
// show fields alongside so alternates are readable on their own.
type Evidence struct {
	Date       string               `json:"date,omitempty"`
	Venue      string               `json:"venue,omitempty"`
	City       string               `json:"city,omitempty"`
	SourceType candidate.SourceType `json:"sourceType,omitempty"`
	URL        string               `json:"url"`
	Snippet    string               `json:"snippet"`
}

// Notes carries structured observations about the winner.
type Notes struct {
	Canceled         bool `json:"canceled"`
	MultiNightSeries bool `json:"multiNightSeries"`
}

// Result is the per-metro decision: a populated winner, or status
// "unknown" with alternates and an audit reason. It is always well-formed;
// selection never errors.
type Result struct {
	Status     string     `json:"status,omitempty"`
	Metro      string     `json:"metro,omitempty"`
	Date       string     `json:"date,omitempty"`
	Venue      string     `json:"venue,omitempty"`
	City       string     `json:"city,omitempty"`
	Evidence   []Evidence `json:"evidence,omitempty"`
	Alternates []Evidence `json:"alternates"`
	Notes      *Notes     `json:"notes,omitempty"`
	Audit      Audit      `json:"audit"`
}

// Selector applies the deterministic decision policy to a candidate batch
// for one metro. Identical input (in any order) produces an identical
// winner, alternates, and decision path.
type Selector struct {
	classifier *metro.Classifier
	now        func() time.Time
}

// New creates a Selector. The classifier fills in metro membership for
// candidates that arrive unclassified.
func New(classifier *metro.Classifier) *Selector {
	return &Selector{classifier: classifier, now: time.Now}
}

// Select runs the fixed decision pipeline: filter, latest date, precedence
// tie-break, venue-in-snippet tie-break, URL-order fallback, near-tie
// correction. Malformed candidates are filtered, never fatal.
func (s *Selector) Select(metroID string, in []candidate.Candidate) Result {
	now := s.now()
	trail := &Trail{}

	survivors, sawValidDate, sawMetroMatch := s.filter(metroID, in, now)

	if len(survivors) == 0 {
		switch {
		case len(in) == 0:
			trail.Mark(StageNoCandidates)
		case !sawValidDate:
			trail.Mark(StageNoValidDates)
		case sawMetroMatch:
			trail.Mark(StageAllCanceled)
		default:
			trail.Mark(StageNoMetroMatches)
		}
		logger.Info("selection unknown", logger.Fields{
			"metro": metroID, "considered": len(in), "reason": trail.Path(),
		})
		return Result{
			Status:     "unknown",
			Alternates: recencyAlternates(in),
			Audit:      Audit{DecisionPath: trail.Path(), CandidatesConsidered: len(in)},
		}
	}

	sortSurvivors(survivors)
	trail.Mark(StageLatestDate)
	winner := survivors[0]

	dmax := winner.Date
	dmaxGroup := sameDate(survivors, dmax)
	if len(dmaxGroup) > 1 {
		trail.Mark(StagePrecedence)
		top := samePrecedence(dmaxGroup, dmaxGroup[0].SourceType.Precedence())
		if len(top) > 1 {
			pool := top
			if withVenue := venueInSnippet(top); len(withVenue) > 0 {
				trail.Mark(StageVenueSnippet)
				pool = withVenue
			}
			// Stable deterministic fallback when the venue check still
			// leaves a tie: lexicographically smallest URL.
			if len(pool) > 1 {
				trail.Mark(StageURLOrder)
			}
			winner = pool[0]
		} else {
			winner = top[0]
		}
	}

	if promoted, ok := nearTiePromotion(survivors, winner, dmax); ok {
		winner = promoted
		trail.Mark(StageNearTie)
	}

	logger.Info("selected winner", logger.Fields{
		"metro": metroID, "date": winner.Date, "venue": winner.Venue,
		"source": string(winner.SourceType), "path": trail.Path(),
	})

	return Result{
		Metro:      metroID,
		Date:       winner.Date,
		Venue:      winner.Venue,
		City:       winner.City,
		Evidence:   []Evidence{toEvidence(winner)},
		Alternates: alternatesFor(survivors, winner),
		Notes: &Notes{
			Canceled:         winner.Canceled,
			MultiNightSeries: multiNight(survivors, winner),
		},
		Audit: Audit{DecisionPath: trail.Path(), CandidatesConsidered: len(in)},
	}
}

// filter applies the discard rules: malformed, future, wrong-metro, or
// canceled candidates drop out. sawValidDate reports whether any input
// carried a usable non-future date; sawMetroMatch whether any of those
// belonged to the metro (canceled included). Together they pin the unknown
// reason to the actual drop cause.
func (s *Selector) filter(metroID string, in []candidate.Candidate, now time.Time) ([]candidate.Candidate, bool, bool) {
	sawValidDate := false
	sawMetroMatch := false
	var out []candidate.Candidate
	for _, c := range in {
		if !c.Usable(now) {
			continue
		}
		t, _ := c.ParseDate()
		if t.After(now) {
			continue
		}
		sawValidDate = true
		m := c.Metro
		if m == "" {
			m, _ = s.classifier.Classify(c.City, c.Venue, "")
		}
		if m != metroID {
			continue
		}
		sawMetroMatch = true
		if c.Canceled {
			continue
		}
		out = append(out, c)
	}
	return out, sawValidDate, sawMetroMatch
}

// sortSurvivors imposes the full deterministic order: date descending,
// precedence descending, venue-in-snippet first, then URL ascending. The
// batch is symmetric in its inputs after this.
func sortSurvivors(cs []candidate.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Date != cs[j].Date {
			return cs[i].Date > cs[j].Date
		}
		pi, pj := cs[i].SourceType.Precedence(), cs[j].SourceType.Precedence()
		if pi != pj {
			return pi > pj
		}
		vi, vj := hasVenueEvidence(cs[i]), hasVenueEvidence(cs[j])
		if vi != vj {
			return vi
		}
		if cs[i].URL != cs[j].URL {
			return cs[i].URL < cs[j].URL
		}
		return cs[i].Snippet < cs[j].Snippet
	})
}

func sameDate(cs []candidate.Candidate, date string) []candidate.Candidate {
	var out []candidate.Candidate
	for _, c := range cs {
		if c.Date == date {
			out = append(out, c)
		}
	}
	return out
}

func samePrecedence(cs []candidate.Candidate, p int) []candidate.Candidate {
	var out []candidate.Candidate
	for _, c := range cs {
		if c.SourceType.Precedence() == p {
			out = append(out, c)
		}
	}
	return out
}

func venueInSnippet(cs []candidate.Candidate) []candidate.Candidate {
	var out []candidate.Candidate
	for _, c := range cs {
		if hasVenueEvidence(c) {
			out = append(out, c)
		}
	}
	return out
}

func hasVenueEvidence(c candidate.Candidate) bool {
	return c.Venue != "" && containsFold(c.Snippet, c.Venue)
}

// nearTiePromotion finds the best strictly-higher-precedence candidate
// dated within the window before dmax. A slightly earlier but more
// authoritative record beats the later but weaker winner.
func nearTiePromotion(survivors []candidate.Candidate, winner candidate.Candidate, dmax string) (candidate.Candidate, bool) {
	dmaxT, ok := parseDay(dmax)
	if !ok {
		return candidate.Candidate{}, false
	}
	winnerPrec := winner.SourceType.Precedence()

	var best candidate.Candidate
	found := false
	for _, c := range survivors {
		if c.Date == dmax || c.SourceType.Precedence() <= winnerPrec {
			continue
		}
		t, ok := parseDay(c.Date)
		if !ok {
			continue
		}
		days := int(dmaxT.Sub(t).Hours() / 24)
		if days < 1 || days > nearTieWindowDays {
			continue
		}
		if !found || betterPromotion(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

// betterPromotion orders promotion contenders: higher precedence, then
// later date, then smaller URL.
func betterPromotion(a, b candidate.Candidate) bool {
	pa, pb := a.SourceType.Precedence(), b.SourceType.Precedence()
	if pa != pb {
		return pa > pb
	}
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	return a.URL < b.URL
}

// alternatesFor returns up to three other survivors in ranked order.
func alternatesFor(survivors []candidate.Candidate, winner candidate.Candidate) []Evidence {
	out := []Evidence{}
	for _, c := range survivors {
		if c == winner {
			continue
		}
		out = append(out, toEvidence(c))
		if len(out) == maxAlternates {
			break
		}
	}
	return out
}

// recencyAlternates ranks the pre-filter set by recency for the unknown
// outcome, so callers still see what was almost usable. Dateless
// candidates rank last.
func recencyAlternates(in []candidate.Candidate) []Evidence {
	ranked := make([]candidate.Candidate, len(in))
	copy(ranked, in)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Date != ranked[j].Date {
			return ranked[i].Date > ranked[j].Date
		}
		return ranked[i].URL < ranked[j].URL
	})

	out := []Evidence{}
	for _, c := range ranked {
		out = append(out, toEvidence(c))
		if len(out) == maxAlternates {
			break
		}
	}
	return out
}

// multiNight reports whether other survivors put the same venue on nearby
// nights, which usually means a multi-night series rather than distinct
// events.
func multiNight(survivors []candidate.Candidate, winner candidate.Candidate) bool {
	if winner.Venue == "" {
		return false
	}
	wt, ok := parseDay(winner.Date)
	if !ok {
		return false
	}
	for _, c := range survivors {
		if c == winner || c.Date == winner.Date {
			continue
		}
		if !equalFold(c.Venue, winner.Venue) {
			continue
		}
		t, ok := parseDay(c.Date)
		if !ok {
			continue
		}
		days := wt.Sub(t).Hours() / 24
		if days < 0 {
			days = -days
		}
		if int(days) <= nearTieWindowDays {
			return true
		}
	}
	return false
}

func toEvidence(c candidate.Candidate) Evidence {
	snippet := c.Snippet
	if len(snippet) > evidenceSnippetCap {
		snippet = snippet[:evidenceSnippetCap]
	}
	return Evidence{
		Date:       c.Date,
		Venue:      c.Venue,
		City:       c.City,
		SourceType: c.SourceType,
		URL:        c.URL,
		Snippet:    snippet,
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func parseDay(date string) (time.Time, bool) {
	t, err := time.Parse(candidate.DateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
