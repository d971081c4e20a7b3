package extract

import (
	"strings"

	"lastshow/internal/candidate"
)

// inferenceOrder fixes the host-table lookup order so a host that appears
// in more than one bucket resolves the same way every run.
var inferenceOrder = []candidate.SourceType{
	candidate.SourceVenue,
	candidate.SourceTicketing,
	candidate.SourceArtist,
	candidate.SourceSetlist,
	candidate.SourceSongkick,
	candidate.SourceBandsintown,
}

// InferSourceType classifies a page URL into a trust tier using the
// configured host table. Hosts match exactly or as a parent domain
// ("www.songkick.com" matches the "songkick.com" entry). Anything
// unrecognized is press, the lowest tier.
func InferSourceType(pageURL string, hosts map[string][]string) candidate.SourceType {
	host := candidate.HostOf(pageURL)
	if host == "" {
		return candidate.SourcePress
	}
	for _, st := range inferenceOrder {
		for _, h := range hosts[string(st)] {
			h = strings.ToLower(h)
			if host == h || strings.HasSuffix(host, "."+h) {
				return st
			}
		}
	}
	return candidate.SourcePress
}
