// Package fetch is the HTTP transport layer the extractors call into.
//
// It enforces the transport policy contract: a bounded per-request timeout
// (default 10s), a small per-host concurrency cap to respect target sites,
// and at most one retry on server errors. Client errors are never retried.
// Fetched bodies are cached with a TTL so repeated requests for the same
// page stay local.
package fetch
