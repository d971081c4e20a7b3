// Package candidate defines the normalized event record shared by every
// extraction path, the fixed source-type trust ladder, and deduplication.
//
// A Candidate is a claim that an artist played somewhere on a date, backed
// by a verbatim snippet from the source page. Candidates are immutable
// values; every extractor produces them and the selector consumes them.
package candidate
