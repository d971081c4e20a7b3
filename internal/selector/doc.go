// Package selector applies the deterministic decision policy to a
// candidate batch for one metro.
//
// The pipeline runs in fixed order: filter, latest date, precedence
// tie-break, venue-in-snippet tie-break, URL-order fallback, near-tie
// correction. It records each stage it actually applied in an
// append-only audit trail. It never errors: empty or malformed input
// terminates in the explicit "unknown" outcome with alternates and a
// stated reason.
package selector
