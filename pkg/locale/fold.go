package locale

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dotless = strings.NewReplacer("ı", "i", "İ", "I")

// Fold lowercases s, strips combining marks and collapses whitespace so that
// heading text compares equal across casing and accent variants.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, dotless.Replace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

// ContainsFold reports whether text contains phrase under Fold.
func ContainsFold(text, phrase string) bool {
	p := Fold(phrase)
	return p != "" && strings.Contains(Fold(text), p)
}

// MatchPhrase is ContainsFold, except that an all-digit phrase such as "404"
// must stand as its own word, so ids and scores that contain it do not match.
func MatchPhrase(text, phrase string) bool {
	p := strings.TrimSpace(phrase)
	if p == "" || strings.IndexFunc(p, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return ContainsFold(text, phrase)
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == p {
			return true
		}
	}
	return false
}
