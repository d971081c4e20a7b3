package dates

import (
	"regexp"
	"strconv"
	"time"
)

// Layout is the normalized calendar-date format produced by this package.
const Layout = "2006-01-02"

// Numeric day/month ambiguity is resolved as US order (month first):
// "1/15/2024" is January 15. The convention is fixed; it is never guessed
// per input.

// A strategy extracts a calendar date from free text. Strategies are tried
// in chain order and the first hit wins; the matched raw text is kept so
// extractors can verify the evidence snippet literally contains it.
type strategy struct {
	name    string
	extract func(text string, now time.Time) (time.Time, string, bool)
}

var chain = []strategy{
	{"structured", extractStructured},
	{"contextual", extractContextual},
	{"generic", extractGeneric},
}

var (
	isoRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	monthDayYearRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+(\d{4})\b`)
	slashRe        = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	dotRe          = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`)

	// Words that mark date-like context. "playing Jan 24" carries enough
	// syntax to accept a date without a year; a bare token never does.
	contextRe = regexp.MustCompile(`(?i)\b(?:on|at|playing|played|performs|performed|performing|shows?|concert|live)\b[:\s]+(.{0,40})`)

	monthDayRe = regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// Normalize runs the strategy chain over free text and returns the date in
// Layout form plus the raw matched text. ok is false when no strategy
// matches or the match fails the sanity gate. A bare 4-digit token is never
// accepted as a year: street addresses like "1901 Union St" must not parse.
func Normalize(text string, now time.Time) (iso, raw string, ok bool) {
	if text == "" {
		return "", "", false
	}
	for _, s := range chain {
		t, matched, hit := s.extract(text, now)
		if !hit {
			continue
		}
		if !sane(t, now) {
			return "", "", false
		}
		return t.Format(Layout), matched, true
	}
	return "", "", false
}

// NormalizeAttr parses a structured machine-readable date attribute such as
// a <time datetime="..."> value. Attributes are trusted over free text, so
// no heuristic scanning happens here: only the leading ISO year-month-day
// is read.
func NormalizeAttr(attr string, now time.Time) (string, bool) {
	m := isoRe.FindString(attr)
	if m == "" {
		return "", false
	}
	t, err := time.Parse(Layout, m)
	if err != nil || !sane(t, now) {
		return "", false
	}
	return t.Format(Layout), true
}

// sane is the post-parse gate: the year must fall inside
// [1900, currentYear+2]. Month and day validity is enforced by makeDate.
func sane(t time.Time, now time.Time) bool {
	return t.Year() >= 1900 && t.Year() <= now.Year()+2
}

func extractStructured(text string, _ time.Time) (time.Time, string, bool) {
	m := isoRe.FindString(text)
	if m == "" {
		return time.Time{}, "", false
	}
	t, err := time.Parse(Layout, m)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, m, true
}

// extractContextual accepts a date only when a date-like context word
// precedes it. With that context a month-day expression without a year is
// allowed and resolved against the current year.
func extractContextual(text string, now time.Time) (time.Time, string, bool) {
	for _, m := range contextRe.FindAllStringSubmatch(text, -1) {
		tail := m[1]
		if t, raw, ok := extractGeneric(tail, now); ok {
			return t, raw, true
		}
		if md := monthDayRe.FindStringSubmatch(tail); md != nil {
			day, _ := strconv.Atoi(md[2])
			if t, ok := makeDate(now.Year(), months[lower3(md[1])], day); ok {
				return t, md[0], true
			}
		}
	}
	return time.Time{}, "", false
}

// extractGeneric accepts unambiguous full-date patterns: a month name with
// day and 4-digit year, or fully separated numeric dates.
func extractGeneric(text string, _ time.Time) (time.Time, string, bool) {
	if m := monthDayYearRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, months[lower3(m[1])], day); ok {
			return t, m[0], true
		}
	}
	if m := dayMonthYearRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, months[lower3(m[2])], day); ok {
			return t, m[0], true
		}
	}
	for _, re := range []*regexp.Regexp{slashRe, dotRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if t, ok := makeDate(expandYear(year), time.Month(month), day); ok {
				return t, m[0], true
			}
		}
	}
	return time.Time{}, "", false
}

// makeDate builds a date and rejects values the calendar normalizes away
// (month 13, February 30, day 0).
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// expandYear maps 2-digit years the way time.Parse does: 69..99 are
// 1900s, 00..68 are 2000s.
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y >= 69 {
		return 1900 + y
	}
	return 2000 + y
}

func lower3(s string) string {
	b := []byte(s[:3])
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
