// Package textproc holds the stateless string transformations applied to
// extracted text before analysis: normalization and PII redaction.
package textproc

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`[\s\v\p{Z}\x{85}]+`)
	pageOfMarker   = regexp.MustCompile(`Page \d+ of \d+`)
	formFeedMarker = strings.NewReplacer("\f", "")
)

// Normalize collapses whitespace runs to a single space, drops
// "Page N of M" pagination markers and form feeds, and trims the result.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	// \s covers \f, so form feeds become separators before the explicit pass.
	out := whitespaceRun.ReplaceAllString(text, " ")
	out = formFeedMarker.Replace(out)
	out = pageOfMarker.ReplaceAllString(out, "")
	// Removing a marker can leave two spaces behind, or expose a new
	// marker across the join; repeat until stable.
	for {
		next := pageOfMarker.ReplaceAllString(whitespaceRun.ReplaceAllString(out, " "), "")
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}
