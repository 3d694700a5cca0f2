package parse

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and removes combining diacritical marks, so
// "São" and "Sao" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize lowercases, strips diacritics and trims surrounding whitespace.
// Returns "" for empty input. Pure and total; used to build comparison keys
// for lexicon lookup and banner matching.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		// transform.String only fails on a misbehaving Transformer; fall
		// back to the lowercased input rather than dropping the text.
		out = strings.ToLower(s)
	}
	return strings.TrimSpace(out)
}
