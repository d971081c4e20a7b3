package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lastshow/internal/config"
	"lastshow/internal/logger"
	"lastshow/internal/storage"
)

// maxBodyBytes caps how much of a page is read. Listing and venue pages
// are far below this; it exists to bound memory on pathological responses.
const maxBodyBytes = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Code, e.URL)
}

// Retryable reports whether the status warrants a retry: server errors
// and rate limiting do, client errors do not.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client fetches pages with a bounded timeout, a per-host concurrency cap,
// and at most cfg.MaxRetries retries on server errors. Successful bodies
// are kept in a TTL cache so repeated extraction requests for the same page
// don't re-hit the source.
type Client struct {
	http      *http.Client
	userAgent string
	retries   uint64
	perHost   int
	cache     *Cache
	store     *storage.Store

	// initial retry delay; shortened in tests
	retryDelay time.Duration

	mu    sync.Mutex
	hosts map[string]chan struct{}
}

// New creates a Client from HTTP config. When a cache directory is
// configured, fetched pages also persist across runs; a store that fails
// to initialize downgrades to the in-memory cache only.
func New(cfg config.HTTPConfig) *Client {
	var store *storage.Store
	if cfg.CacheDir != "" {
		var err error
		store, err = storage.New(cfg.CacheDir, cfg.CacheTTL())
		if err != nil {
			logger.Warn("page store unavailable", logger.Fields{"dir": cfg.CacheDir, "error": err.Error()})
			store = nil
		}
	}
	return &Client{
		store: store,
		http:       &http.Client{Timeout: cfg.Timeout()},
		userAgent:  cfg.UserAgent,
		retries:    uint64(cfg.MaxRetries),
		perHost:    cfg.PerHostConcurrency,
		cache:      NewCache(cfg.CacheTTL()),
		retryDelay: 500 * time.Millisecond,
		hosts:      make(map[string]chan struct{}),
	}
}

// Get fetches a URL and returns the response body. Client errors fail
// immediately; server errors are retried once with exponential backoff.
// The context bounds the whole operation including the per-host wait.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := c.cache.Get(rawURL); ok {
		return body, nil
	}
	if c.store != nil {
		if body, ok := c.store.Load(rawURL); ok {
			c.cache.Set(rawURL, body)
			return body, nil
		}
	}

	host := hostOf(rawURL)
	release, err := c.acquire(ctx, host)
	if err != nil {
		return nil, err
	}
	defer release()

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fetching page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{Code: resp.StatusCode, URL: rawURL}
			if !statusErr.Retryable() {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx)); err != nil {
		logger.Warn("fetch failed", logger.Fields{"url": rawURL, "host": host})
		return nil, err
	}

	c.cache.Set(rawURL, body)
	if c.store != nil {
		if err := c.store.Save(rawURL, body); err != nil {
			logger.Warn("page store write failed", logger.Fields{"url": rawURL, "error": err.Error()})
		}
	}
	return body, nil
}

// acquire takes a per-host slot, creating the host's semaphore on first
// use. It blocks until a slot frees up or the context is done.
func (c *Client) acquire(ctx context.Context, host string) (func(), error) {
	c.mu.Lock()
	sem, ok := c.hosts[host]
	if !ok {
		sem = make(chan struct{}, c.perHost)
		c.hosts[host] = sem
	}
	c.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func hostOf(rawURL string) string {
	// Parse errors map to a shared "" host bucket, which still caps
	// concurrency for malformed input.
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return ""
}
