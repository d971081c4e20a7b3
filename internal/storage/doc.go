// Package storage provides JSON-based persistence for fetched pages.
//
// The storage package keeps one file per page (page_<hash>.json) under a
// data directory so repeated queries a few days apart do not refetch the
// same listings. Entries expire on the configured TTL and are removed
// lazily on read or in bulk via CleanExpired.
package storage
