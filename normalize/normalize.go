// Package normalize canonicalizes free text for matching: lowercase, no
// diacritics, no punctuation, single spaces. Total and deterministic over
// any input, and a fixed point (normalizing twice changes nothing).
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
	// NFD + drop combining marks folds á→a, ñ→n, ü→u.
	foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	punctRe = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Text returns the canonical form of s. Empty input yields empty output.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(foldMarks, s); err == nil {
		s = folded
	}
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits the canonical form of s into words.
func Tokens(s string) []string {
	return strings.Fields(Text(s))
}
