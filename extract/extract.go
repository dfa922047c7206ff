// Package extract pulls locality names, address tokens and day/date
// markers out of normalized user text. Pattern order is fixed; the first
// matching locality pattern wins.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/normalize"
	"github.com/farmachile/medagent/types"
)

// Extractor holds the compiled pattern set. Build once, use per turn.
type Extractor struct {
	lex      config.Lexicon
	patterns []*regexp.Regexp
	dateRe   *regexp.Regexp
	enSegRe  *regexp.Regexp
	addrKw   map[string]struct{}
	addrStop map[string]struct{}
	temporal map[string]struct{}
}

// New compiles the locality patterns from the lexicon.
func New(lex config.Lexicon) *Extractor {
	stops := make([]string, 0, len(lex.TemporalWords)+len(lex.LocalityStopWords))
	stops = append(stops, lex.TemporalWords...)
	stops = append(stops, lex.LocalityStopWords...)
	for i, w := range stops {
		stops[i] = regexp.QuoteMeta(w)
	}
	// Capture runs until a stop word or end of string. Normalized text has
	// no punctuation left to terminate on.
	term := `(?:\s+(?:` + strings.Join(stops, "|") + `)\b|$)`

	return &Extractor{
		lex: lex,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\ben\s+(?:la\s+comuna\s+de\s+)?([a-z\s]+?)` + term),
			regexp.MustCompile(`\bcomuna\s+de\s+([a-z\s]+?)` + term),
			regexp.MustCompile(`\bfarmacias?\s+de\s+(?:la\s+comuna\s+de\s+)?([a-z\s]+?)` + term),
		},
		dateRe:   regexp.MustCompile(`\b(\d{4}) (\d{2}) (\d{2})\b`),
		enSegRe:  regexp.MustCompile(`\ben\s+(.+)$`),
		addrKw:   toSet(lex.AddressKeywords),
		addrStop: toSet(lex.AddressStopWords),
		temporal: toSet(lex.TemporalWords),
	}
}

// Extract derives entities from one user turn. Input is expected to be
// normalized already; it is re-normalized defensively so the function
// stays total. Absent entities are a valid result, not an error.
func (e *Extractor) Extract(text string) types.Entities {
	text = normalize.Text(text)

	var ents types.Entities
	locTokens := map[string]struct{}{}
	for _, re := range e.patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			ents.Locality = strings.TrimSpace(m[1])
			for _, tok := range strings.Fields(ents.Locality) {
				locTokens[tok] = struct{}{}
			}
			break
		}
	}

	tokens := strings.Fields(text)
	for _, tok := range tokens {
		if _, ok := e.temporal[tok]; ok {
			// Computed at call time on purpose: "hoy" means now, not boot time.
			ents.Day = e.lex.Weekdays[(int(time.Now().Weekday())+6)%7]
			break
		}
	}
	if m := e.dateRe.FindStringSubmatch(text); m != nil {
		ents.Date = m[1] + "-" + m[2] + "-" + m[3]
	}

	if !e.addressMode(tokens) {
		return ents
	}
	segment := text
	if m := e.enSegRe.FindStringSubmatch(text); m != nil {
		segment = m[1]
	}
	seen := map[string]struct{}{}
	for _, tok := range strings.Fields(segment) {
		if _, dup := seen[tok]; dup {
			continue
		}
		if !e.keepAddressToken(tok, locTokens) {
			continue
		}
		seen[tok] = struct{}{}
		ents.AddressTokens = append(ents.AddressTokens, tok)
	}
	return ents
}

// SegmentTokens applies the address token rules to a segment the caller
// already isolated, such as a router-provided street filter.
func (e *Extractor) SegmentTokens(segment string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tok := range normalize.Tokens(segment) {
		if _, dup := seen[tok]; dup {
			continue
		}
		if !e.keepAddressToken(tok, nil) {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func (e *Extractor) addressMode(tokens []string) bool {
	for _, tok := range tokens {
		if isDigits(tok) {
			return true
		}
		if _, ok := e.addrKw[tok]; ok {
			return true
		}
	}
	return false
}

func (e *Extractor) keepAddressToken(tok string, locTokens map[string]struct{}) bool {
	if isDigits(tok) {
		return true
	}
	if _, ok := e.addrKw[tok]; ok {
		return true
	}
	if len(tok) < 2 {
		return false
	}
	if _, ok := e.addrStop[tok]; ok {
		return false
	}
	if _, ok := e.temporal[tok]; ok {
		return false
	}
	if _, ok := locTokens[tok]; ok {
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
