package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store handles persistence of fetched pages across runs.
type Store struct {
	dataDir string
	ttl     time.Duration
}

// cachedPage is the on-disk record for one fetched page.
type cachedPage struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"body"`
}

// New creates a new Store instance. A ttl of zero or less disables
// expiry.
func New(dataDir string, ttl time.Duration) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Store{
		dataDir: dataDir,
		ttl:     ttl,
	}, nil
}

// pagePath returns the path to the cached page file for a URL.
func (s *Store) pagePath(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return filepath.Join(s.dataDir, "page_"+hex.EncodeToString(sum[:16])+".json")
}

// Load returns the cached body for a URL, or false when the page is
// absent or its entry has expired. Expired entries are removed.
func (s *Store) Load(pageURL string) ([]byte, bool) {
	path := s.pagePath(pageURL)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		// An unreadable entry is treated as a miss and cleaned up.
		os.Remove(path)
		return nil, false
	}

	if s.ttl > 0 && time.Since(page.FetchedAt) > s.ttl {
		os.Remove(path)
		return nil, false
	}
	return page.Body, true
}

// Save writes a fetched page to disk.
func (s *Store) Save(pageURL string, body []byte) error {
	page := cachedPage{
		URL:       pageURL,
		FetchedAt: time.Now().UTC(),
		Body:      body,
	}

	data, err := json.Marshal(&page)
	if err != nil {
		return fmt.Errorf("encoding cached page: %w", err)
	}

	if err := os.WriteFile(s.pagePath(pageURL), data, 0644); err != nil {
		return fmt.Errorf("writing cached page: %w", err)
	}
	return nil
}

// CleanExpired removes every expired page file and reports how many were
// removed.
func (s *Store) CleanExpired() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return 0, fmt.Errorf("reading data directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "page_") {
			continue
		}
		path := filepath.Join(s.dataDir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var page cachedPage
		if err := json.Unmarshal(data, &page); err != nil || time.Since(page.FetchedAt) > s.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
