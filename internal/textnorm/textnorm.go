// Package textnorm holds the string normalisation shared by extraction,
// name matching and duplicate detection.
package textnorm

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonWordExpr = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// CleanText removes newlines and pipes and collapses runs of whitespace.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "")
	return CollapseSpaces(s)
}

// CollapseSpaces joins whitespace-separated fields with single spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripAccents removes diacritical marks, keeping the base letters.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// QueryTitle is the form of a title sent to the store's full-text search:
// no diacritics, no punctuation, single-spaced.
func QueryTitle(s string) string {
	s = StripAccents(s)
	s = nonWordExpr.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

// CanonicalTitle normalises a title for equality comparison:
// NFKC, case folding and HTML escaping, with whitespace collapsed.
func CanonicalTitle(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = CollapseSpaces(s)
	return html.EscapeString(s)
}
