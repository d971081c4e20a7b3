package candidate

import "strings"

// Dedupe collapses candidates that describe the same real-world event.
// The identity key is normalized date + folded venue + folded city + source
// host; candidates from different hosts stay distinct so the alternates
// list keeps its evidentiary diversity. The first-seen candidate in input
// order is the surviving representative, which makes the operation stable
// and idempotent.
func Dedupe(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		k := dedupKey(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

func dedupKey(c Candidate) string {
	return c.Date + "|" + fold(c.Venue) + "|" + fold(c.City) + "|" + c.SourceHost
}

// fold lowercases and collapses internal whitespace.
func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
