package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lastshow/internal/config"
)

func testConfig() config.HTTPConfig {
	return config.HTTPConfig{
		TimeoutSeconds:     5,
		MaxRetries:         1,
		PerHostConcurrency: 2,
		CacheTTLDays:       1,
		UserAgent:          "last-show-oracle-test/1.0",
	}
}

func newTestClient() *Client {
	c := New(testConfig())
	c.retryDelay = 5 * time.Millisecond
	return c
}

func TestGetSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := newTestClient()
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("body = %q", body)
	}
	if gotUA != "last-show-oracle-test/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
}

func TestGetRetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient()
	_, err := c.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Errorf("error = %v, want StatusError 502", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d requests, want 2 (one retry)", got)
	}
}

func TestGetDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient()
	_, err := c.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry)", got)
	}
}

func TestGetServesSecondRequestFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("cached page"))
	}))
	defer srv.Close()

	c := newTestClient()
	for i := 0; i < 2; i++ {
		body, err := c.Get(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
		if string(body) != "cached page" {
			t.Errorf("body = %q", body)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (second served from cache)", got)
	}
}

func TestGetHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient()
	if _, err := c.Get(ctx, "https://example.com/never-fetched"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(10 * time.Millisecond)
	cache.Set("https://example.com", []byte("body"))

	if _, ok := cache.Get("https://example.com"); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("https://example.com"); ok {
		t.Error("expired entry should miss")
	}
	if n := cache.CleanExpired(); n != 0 {
		// Get already evicted the expired entry.
		t.Errorf("CleanExpired removed %d entries, want 0", n)
	}
}

func TestCacheDisabled(t *testing.T) {
	cache := NewCache(0)
	cache.Set("https://example.com", []byte("body"))
	if _, ok := cache.Get("https://example.com"); ok {
		t.Error("disabled cache should never hit")
	}
}

func TestDiskStoreServesAcrossClients(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<html>stored</html>"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.CacheDir = t.TempDir()

	first := New(cfg)
	if _, err := first.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("first Get failed: %v", err)
	}

	// A fresh client has an empty in-memory cache but shares the store.
	second := New(cfg)
	body, err := second.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if string(body) != "<html>stored</html>" {
		t.Errorf("body = %q", body)
	}
	if calls.Load() != 1 {
		t.Errorf("origin fetched %d times, want 1", calls.Load())
	}
}
