// Package archive recovers show evidence from Wayback Machine captures.
// It lists a page's snapshots through the CDX API, runs generic extraction
// over each capture, and rewrites evidence URLs to point at the snapshot
// so claims survive the live page going away.
package archive
