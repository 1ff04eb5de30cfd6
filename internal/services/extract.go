// Package services – summary extraction
//
// The chat backend prefixes its final summary with a marker line that
// separates it from reasoning/preamble. Extraction slices out everything
// below the first marker line; when no marker is present the whole reply is
// treated as the summary. That fallback can capture conversational preamble
// as a stored summary; an inherited ambiguity, kept on purpose.
package services

import "strings"

// DefaultSummaryMarker is the marker substring used when none is configured.
// The backend is expected to emit it on its own line (e.g. "SUM:").
const DefaultSummaryMarker = "sum"

// ExtractSummary returns the summary body of reply: the trimmed join of all
// lines after the first line whose lower-cased form contains marker. The
// marker line itself and everything above it are discarded. When the marker
// never occurs, the trimmed whole input is returned unchanged, which makes
// the function idempotent on its own output.
func ExtractSummary(reply, marker string) string {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		marker = DefaultSummaryMarker
	}
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), marker) {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return strings.TrimSpace(reply)
}

// ContainsMarker reports whether the marker substring occurs anywhere in
// reply, case-insensitively. The orchestrator uses it together with the
// confirmation check to recognize a final-summary turn.
func ContainsMarker(reply, marker string) bool {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		marker = DefaultSummaryMarker
	}
	return strings.Contains(strings.ToLower(reply), marker)
}
