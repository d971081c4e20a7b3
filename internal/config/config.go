package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide, read-only configuration. It is loaded once at
// startup and injected into the components that need it; reloading swaps in
// a whole new value, never mutates a live one.
type Config struct {
	Server      ServerConfig        `yaml:"server"`
	LogLevel    string              `yaml:"logLevel"`
	HTTP        HTTPConfig          `yaml:"http"`
	Archive     ArchiveConfig       `yaml:"archive"`
	Extract     ExtractConfig       `yaml:"extract"`
	Metros      []Metro             `yaml:"metros"`
	SourceHosts map[string][]string `yaml:"sourceHosts"`
}

type ServerConfig struct {
	Port   string `yaml:"port"`
	APIKey string `yaml:"apiKey"` // empty disables the X-API-Key check
}

type HTTPConfig struct {
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`
	MaxRetries         int    `yaml:"maxRetries"`
	PerHostConcurrency int    `yaml:"perHostConcurrency"`
	CacheTTLDays       int    `yaml:"cacheTtlDays"`
	CacheDir           string `yaml:"cacheDir"` // empty disables the on-disk page store
	UserAgent          string `yaml:"userAgent"`
}

// Timeout returns the request timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// CacheTTL returns the fetched-page cache lifetime.
func (h HTTPConfig) CacheTTL() time.Duration {
	return time.Duration(h.CacheTTLDays) * 24 * time.Hour
}

type ArchiveConfig struct {
	CDXBaseURL      string `yaml:"cdxBaseUrl"`
	SnapshotBaseURL string `yaml:"snapshotBaseUrl"`
	MaxSnapshots    int    `yaml:"maxSnapshots"`
}

type ExtractConfig struct {
	NodeScanCap     int    `yaml:"nodeScanCap"`
	MaxListingPages int    `yaml:"maxListingPages"`
	ListingBaseURL  string `yaml:"listingBaseUrl"`
}

// Metro describes one configured target metro area.
type Metro struct {
	ID          string   `yaml:"id"`
	DisplayCity string   `yaml:"displayCity"`
	RegionIDs   []string `yaml:"regionIds"` // canonical region-id path segments, digits stripped
	Tokens      []string `yaml:"tokens"`    // city names, boroughs, abbreviations
	Venues      []string `yaml:"venues"`    // whitelist for venue-only rescue
}

// Default returns the built-in configuration covering the SF and NYC
// metros.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8000"},
		LogLevel: "info",
		HTTP: HTTPConfig{
			TimeoutSeconds:     10,
			MaxRetries:         1,
			PerHostConcurrency: 2,
			CacheTTLDays:       7,
			UserAgent:          "last-show-oracle/1.0",
		},
		Archive: ArchiveConfig{
			CDXBaseURL:      "http://web.archive.org/cdx/search/cdx",
			SnapshotBaseURL: "http://web.archive.org/web",
			MaxSnapshots:    5,
		},
		Extract: ExtractConfig{
			NodeScanCap:     200,
			MaxListingPages: 8,
			ListingBaseURL:  "https://www.songkick.com",
		},
		Metros: []Metro{
			{
				ID:          "SF",
				DisplayCity: "San Francisco, CA",
				RegionIDs:   []string{"san-francisco-bay-area"},
				Tokens: []string{
					"San Francisco", "SF", "Oakland", "Berkeley", "San Jose",
					"Palo Alto", "Mountain View", "Santa Clara", "Daly City",
				},
				Venues: []string{
					"The Independent", "The Fillmore", "Great American Music Hall",
					"The Chapel", "Bottom of the Hill",
				},
			},
			{
				ID:          "NYC",
				DisplayCity: "New York, NY",
				RegionIDs:   []string{"new-york-ny"},
				Tokens: []string{
					"New York", "NYC", "Manhattan", "Brooklyn", "Queens",
					"Bronx", "Staten Island",
				},
				Venues: []string{
					"Madison Square Garden", "Radio City Music Hall", "Brooklyn Steel",
					"Bowery Ballroom", "Mercury Lounge",
				},
			},
		},
		SourceHosts: map[string][]string{
			"songkick":    {"songkick.com"},
			"bandsintown": {"bandsintown.com"},
			"setlist":     {"setlist.fm"},
			"ticketing":   {"ticketmaster.com", "axs.com", "eventbrite.com", "dice.fm"},
			"venue":       {"theindependentsf.com", "thefillmore.com", "gamh.com"},
		},
	}
}

// Load reads a YAML config file over the defaults and then applies
// environment overrides. An empty path returns the defaults with
// environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if len(c.Metros) == 0 {
		return fmt.Errorf("config has no metros")
	}
	seen := make(map[string]bool)
	for _, m := range c.Metros {
		if m.ID == "" {
			return fmt.Errorf("metro with empty id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate metro id %q", m.ID)
		}
		seen[m.ID] = true
	}
	if c.Archive.MaxSnapshots > 5 {
		return fmt.Errorf("archive.maxSnapshots must be at most 5, got %d", c.Archive.MaxSnapshots)
	}
	if c.Extract.MaxListingPages > 8 {
		return fmt.Errorf("extract.maxListingPages must be at most 8, got %d", c.Extract.MaxListingPages)
	}
	return nil
}

// MetroByID looks up a configured metro. ok is false for unknown ids.
func (c *Config) MetroByID(id string) (Metro, bool) {
	for _, m := range c.Metros {
		if m.ID == id {
			return m, true
		}
	}
	return Metro{}, false
}
