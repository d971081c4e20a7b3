package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lastshow/internal/archive"
	"lastshow/internal/config"
	"lastshow/internal/extract"
	"lastshow/internal/fetch"
	"lastshow/internal/logger"
	"lastshow/internal/metro"
	"lastshow/internal/selector"
)

// Server wires the extraction and selection pipeline behind a JSON API.
type Server struct {
	cfg        *config.Config
	classifier *metro.Classifier
	listing    *extract.Listing
	generic    *extract.Generic
	archive    *archive.Client
	selector   *selector.Selector
	metrics    *metrics
	httpServer *http.Server
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) *Server {
	classifier := metro.NewClassifier(cfg.Metros)
	fetcher := fetch.New(cfg.HTTP)
	generic := extract.NewGeneric(cfg, classifier, fetcher)

	s := &Server{
		cfg:        cfg,
		classifier: classifier,
		listing:    extract.NewListing(cfg, classifier, fetcher),
		generic:    generic,
		archive:    archive.New(cfg, fetcher, generic),
		selector:   selector.New(classifier),
		metrics:    newMetrics(),
	}
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with auth and instrumentation
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/extract/listing", s.handleExtractListing)
	mux.HandleFunc("/extract/generic", s.handleExtractGeneric)
	mux.HandleFunc("/extract/archive", s.handleExtractArchive)
	mux.HandleFunc("/select", s.handleSelect)
	return s.instrument(s.auth(mux))
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", logger.Fields{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server shutting down", nil)
	return s.httpServer.Shutdown(shutdownCtx)
}

// auth enforces the configured API key on every endpoint except health and
// metrics. An empty configured key disables the check.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.APIKey != "" && r.URL.Path != "/health" && r.URL.Path != "/metrics" {
			if r.Header.Get("X-API-Key") != s.cfg.Server.APIKey {
				respondError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// instrument tags each request with an id and records request metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		w.Header().Set("X-Request-ID", reqID)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.metrics.reqDuration.Observe(time.Since(start).Seconds())
		s.metrics.reqTotal.WithLabelValues(r.URL.Path, strconv.Itoa(sw.status)).Inc()
		logger.Info("request served", logger.Fields{
			"requestId": reqID,
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    sw.status,
			"ms":        time.Since(start).Milliseconds(),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
