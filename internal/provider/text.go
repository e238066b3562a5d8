package provider

import (
	"regexp"
	"strings"
)

var trailingYear = regexp.MustCompile(`\s+\d{4}$`)

// StripYear removes a trailing four digit year from a query,
// e.g. "Title Name 2021" becomes "Title Name". A bare number such as "1917"
// is kept since it is the whole title.
func StripYear(s string) string {
	return strings.TrimSpace(trailingYear.ReplaceAllString(strings.TrimSpace(s), ""))
}
