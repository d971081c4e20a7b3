// Package dates normalizes arbitrary textual or structured date
// expressions into validated calendar dates.
//
// Extraction is an ordered chain of strategies with explicit precedence:
// structured ISO attributes first, then free text that carries date-like
// context, then unambiguous full-date patterns. Anything that parses still
// has to pass a sanity gate (year within [1900, currentYear+2]) before it
// is emitted. Failures yield "no date", never an error to the caller.
package dates
