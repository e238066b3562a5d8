package wikipedia

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	nonAlnum      = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)
	spaces        = regexp.MustCompile(`\s+`)
)

// normalizeTitle reduces a table cell to comparable form:
// "Amélie (2001 film)" becomes "amelie".
func normalizeTitle(s string) string {
	s = parenthetical.ReplaceAllString(s, " ")
	s = foldAccents(s)
	s = nonAlnum.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeQuery applies normalizeTitle after dropping a trailing year.
func normalizeQuery(q string) string {
	return normalizeTitle(provider.StripYear(q))
}

func foldAccents(s string) string {
	// transformers carry state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
