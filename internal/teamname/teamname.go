// Package teamname compares club names coming from different sources.
package teamname

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// club-form tokens that carry no identity
var suffixTokens = map[string]bool{
	"fc":  true,
	"afc": true,
	"cf":  true,
	"sc":  true,
	"ssc": true,
}

var folder = cases.Fold()

// Normalize case-folds name, strips accents and club-form tokens, and collapses whitespace
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	folded := folder.String(stripped)

	folded = strings.Map(func(r rune) rune {
		if r == '.' || r == '&' || r == '-' || r == '\'' {
			return ' '
		}
		return r
	}, folded)

	fields := strings.Fields(folded)
	kept := fields[:0]
	for _, f := range fields {
		if !suffixTokens[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// Matcher decides whether two names refer to the same club
type Matcher func(a, b string) bool

// Strength of a match, higher is more certain
type Strength int

const (
	NoMatch Strength = iota
	FirstWord
	Containment
	Exact
)

// Compare grades how well a and b match after normalisation.
// First-word matches need a word longer than three characters and can confuse
// clubs sharing one, such as the Real or Manchester sides.
func Compare(a, b string) Strength {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return NoMatch
	}
	if na == nb {
		return Exact
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return Containment
	}
	fa, fb := firstWord(na), firstWord(nb)
	if fa == fb && len([]rune(fa)) > 3 {
		return FirstWord
	}
	return NoMatch
}

// Match is the default Matcher: exact, containment either way, or first-word equality
func Match(a, b string) bool {
	return Compare(a, b) != NoMatch
}

// Best returns the index of the candidate matching name most strongly, preferring earlier ones on ties
func Best(name string, candidates []string) (int, bool) {
	best, bestStrength := -1, NoMatch
	for i, c := range candidates {
		if s := Compare(name, c); s > bestStrength {
			best, bestStrength = i, s
		}
	}
	return best, best >= 0
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
