package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"lastshow/internal/candidate"
	"lastshow/internal/selector"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteResult writes a selection result in the specified format.
func WriteResult(w io.Writer, result selector.Result, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeResultText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteCandidates writes extracted candidates in the specified format.
func WriteCandidates(w io.Writer, cands []candidate.Candidate, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, map[string]any{"candidates": cands, "count": len(cands)})
	case FormatText:
		return writeCandidatesText(w, cands, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeResultText(w io.Writer, result selector.Result, verbose bool) error {
	if result.Status == "unknown" {
		fmt.Fprintln(w, "No confirmed show found.")
		if len(result.Alternates) > 0 {
			fmt.Fprintln(w, "\nClosest unconfirmed records:")
			for _, alt := range result.Alternates {
				fmt.Fprintf(w, "  %s %s, %s\n", alt.Date, alt.Venue, alt.City)
				if verbose {
					fmt.Fprintf(w, "    %s\n", alt.URL)
				}
			}
		}
		fmt.Fprintf(w, "\nReason: %s\n", joinPath(result.Audit.DecisionPath))
		return nil
	}

	fmt.Fprintf(w, "%s: %s at %s, %s\n", result.Metro, result.Date, result.Venue, result.City)
	for _, ev := range result.Evidence {
		fmt.Fprintf(w, "  Evidence: %s\n", ev.URL)
		if verbose {
			fmt.Fprintf(w, "    %q\n", ev.Snippet)
		}
	}
	if result.Notes != nil && result.Notes.MultiNightSeries {
		fmt.Fprintln(w, "  Note: part of a multi-night run at this venue")
	}
	if verbose {
		if len(result.Alternates) > 0 {
			fmt.Fprintln(w, "  Alternates:")
			for _, alt := range result.Alternates {
				fmt.Fprintf(w, "    %s %s (%s)\n", alt.Date, alt.Venue, alt.URL)
			}
		}
		fmt.Fprintf(w, "  Decided by: %s\n", joinPath(result.Audit.DecisionPath))
		fmt.Fprintf(w, "  Candidates considered: %d\n", result.Audit.CandidatesConsidered)
	}
	return nil
}

func writeCandidatesText(w io.Writer, cands []candidate.Candidate, verbose bool) error {
	if len(cands) == 0 {
		fmt.Fprintln(w, "No candidates found.")
		return nil
	}

	sortCandidates(cands)
	for _, c := range cands {
		line := fmt.Sprintf("%s  %s", c.Date, c.Venue)
		if c.City != "" {
			line += ", " + c.City
		}
		if c.Canceled {
			line += "  [canceled]"
		}
		fmt.Fprintln(w, line)
		if verbose {
			fmt.Fprintf(w, "    source: %s (%s)\n", c.SourceType, c.URL)
			fmt.Fprintf(w, "    %q\n", c.Snippet)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d candidates\n", len(cands))
	return nil
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return "none"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += " > " + p
	}
	return out
}
