package cli

import (
	"sort"
	"strings"

	"lastshow/internal/candidate"
)

// sortCandidates orders candidates for display: most recent date first,
// then source trust, then venue name. Dateless candidates sink to the
// bottom.
func sortCandidates(cands []candidate.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if (cands[i].Date == "") != (cands[j].Date == "") {
			return cands[i].Date != ""
		}
		if cands[i].Date != cands[j].Date {
			return cands[i].Date > cands[j].Date
		}
		pi, pj := cands[i].SourceType.Precedence(), cands[j].SourceType.Precedence()
		if pi != pj {
			return pi > pj
		}
		return strings.ToLower(cands[i].Venue) < strings.ToLower(cands[j].Venue)
	})
}
