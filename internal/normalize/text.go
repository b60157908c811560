// Package normalize holds the pure field normalizers: URL cleaning, price parsing,
// color canonicalization and category detection. Nothing here performs I/O and
// nothing here returns an error for enrichment fields.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRegex     = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	multiSpacesRegex = regexp.MustCompile(`\s+`)
)

// Fold lowercases s, strips diacritics and replaces punctuation with single spaces,
// so that "Tacón", "TACON" and "tacón!" compare equal.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// transform.Chain keeps state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = strings.ReplaceAll(folded, "ß", "ss")
	folded = nonWordRegex.ReplaceAllString(folded, " ")
	return strings.TrimSpace(multiSpacesRegex.ReplaceAllString(folded, " "))
}

// containsKeyword reports whether folded text contains keyword on word boundaries,
// tolerating a plural "s" or "es" on its last word.
func containsKeyword(text, keyword string) bool {
	padded := " " + text + " "
	for _, suffix := range []string{"", "s", "es"} {
		if strings.Contains(padded, " "+keyword+suffix+" ") {
			return true
		}
	}
	return false
}

// CleanText trims s and collapses inner whitespace.
func CleanText(s string) string {
	return strings.TrimSpace(multiSpacesRegex.ReplaceAllString(s, " "))
}
