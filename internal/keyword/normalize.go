package keyword

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var spaceRuns = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a phrase or title for matching: trim, NFKC,
// locale-invariant lowercase, collapse whitespace runs, trim again.
// Institutional titles mix full-width and half-width characters and
// irregular spacing, so equality and containment are only meaningful
// after this transform.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
