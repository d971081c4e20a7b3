package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/sling"

	"lastshow/internal/candidate"
	"lastshow/internal/config"
	"lastshow/internal/extract"
	"lastshow/internal/fetch"
	"lastshow/internal/logger"
)

// defaultFromYear bounds the capture search when a request names no
// range. Captures older than this are stale for a "last show" question.
const defaultFromYear = 2023

// cdxParams is the CDX server query. A negative limit selects the newest
// captures instead of the oldest; from/to are year prefixes bounding the
// capture timestamps.
type cdxParams struct {
	URL    string `url:"url"`
	Output string `url:"output"`
	From   int    `url:"from,omitempty"`
	To     int    `url:"to,omitempty"`
	Filter string `url:"filter,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Fl     string `url:"fl,omitempty"`
}

// Snapshot is one Wayback Machine capture of a page.
type Snapshot struct {
	Timestamp string `json:"timestamp"`
	Original  string `json:"original"`
	URL       string `json:"url"`
}

// Request asks for extraction from archived captures of a dead or changed
// page.
type Request struct {
	URL          string `json:"url"`
	Artist       string `json:"artist,omitempty"`
	FromYear     int    `json:"fromYear,omitempty"`
	ToYear       int    `json:"toYear,omitempty"`
	MaxSnapshots int    `json:"maxSnapshots,omitempty"`
}

// Client lists Wayback captures through the CDX API and runs the generic
// extractor over each capture's content. Evidence URLs point at the
// snapshot, not the live page, so a claim stays checkable after the live
// page dies.
type Client struct {
	cdx          *sling.Sling
	snapshotBase string
	maxSnapshots int
	fetcher      *fetch.Client
	generic      *extract.Generic
}

// New builds an archive client from the configured CDX endpoint.
func New(cfg *config.Config, fetcher *fetch.Client, generic *extract.Generic) *Client {
	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second}
	return &Client{
		cdx:          sling.New().Client(httpClient).Base(cfg.Archive.CDXBaseURL),
		snapshotBase: cfg.Archive.SnapshotBaseURL,
		maxSnapshots: cfg.Archive.MaxSnapshots,
		fetcher:      fetcher,
		generic:      generic,
	}
}

// Snapshots returns up to limit captures of pageURL inside the year
// range, newest first. Only successful captures are listed. Zero years
// fall back to the default range ending at the current year.
func (c *Client) Snapshots(ctx context.Context, pageURL string, fromYear, toYear, limit int) ([]Snapshot, error) {
	if limit < 1 || limit > c.maxSnapshots {
		limit = c.maxSnapshots
	}
	if fromYear < 1 {
		fromYear = defaultFromYear
	}
	if toYear < 1 {
		toYear = time.Now().Year()
	}

	params := &cdxParams{
		URL:    pageURL,
		Output: "json",
		From:   fromYear,
		To:     toYear,
		Filter: "statuscode:200",
		Limit:  -limit,
		Fl:     "timestamp,original",
	}

	req, err := c.cdx.New().QueryStruct(params).Request()
	if err != nil {
		return nil, fmt.Errorf("building CDX request: %w", err)
	}

	var rows [][]string
	resp, err := c.cdx.Do(req.WithContext(ctx), &rows, nil)
	if err != nil {
		return nil, fmt.Errorf("querying CDX for %s: %w", pageURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CDX returned status %d for %s", resp.StatusCode, pageURL)
	}

	// First row is the field header; the rest are captures in ascending
	// timestamp order.
	var snaps []Snapshot
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		ts, original := row[0], row[1]
		snaps = append(snaps, Snapshot{
			Timestamp: ts,
			Original:  original,
			URL:       fmt.Sprintf("%s/%s/%s", c.snapshotBase, ts, original),
		})
	}

	// Newest first.
	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

// Extract lists captures of req.URL and extracts candidates from each one.
// Captures that fail to fetch are skipped; candidates carry the snapshot
// URL and the archived flag. The source type still reflects the original
// host, not web.archive.org.
func (c *Client) Extract(ctx context.Context, req Request) ([]candidate.Candidate, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("archive request needs a url")
	}

	snaps, err := c.Snapshots(ctx, req.URL, req.FromYear, req.ToYear, req.MaxSnapshots)
	if err != nil {
		return nil, err
	}

	var all []candidate.Candidate
	for _, snap := range snaps {
		body, err := c.fetcher.Get(ctx, snap.URL)
		if err != nil {
			logger.Warn("snapshot fetch failed", logger.Fields{"snapshot": snap.URL})
			continue
		}
		cands, err := c.generic.Extract(bytes.NewReader(body), req.URL, req.Artist)
		if err != nil {
			logger.Warn("snapshot did not parse", logger.Fields{"snapshot": snap.URL})
			continue
		}
		for _, cand := range cands {
			all = append(all, cand.WithArchived(snap.URL))
		}
	}

	logger.Info("archive extraction finished", logger.Fields{
		"url": req.URL, "snapshots": len(snaps), "candidates": len(all),
	})
	return candidate.Dedupe(all), nil
}
