// Package server exposes extraction and selection as a JSON API: listing,
// generic, and archive extraction endpoints plus the per-metro selection
// endpoint, with API-key auth and Prometheus instrumentation.
package server
