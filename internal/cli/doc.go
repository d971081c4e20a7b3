// Package cli implements the command-line interface for lso.
//
// The cli package provides the Cobra-based CLI with subcommands for
// serving the HTTP API, answering a last-show query end to end, and
// extracting candidates from a single page, with text and JSON output.
// It coordinates the extract, selector, and server packages.
package cli
