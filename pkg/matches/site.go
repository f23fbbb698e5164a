package matches

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Site describes where list and detail pages live. Paths are templates
// where {locale}, {view}, {id} and {slug} are substituted.
type Site struct {
	BaseURL    string
	ListPath   string
	DetailPath string
}

const (
	DefaultListPath   = "/{locale}/football/{view}"
	DefaultDetailPath = "/{locale}/match/{slug}/{id}"
)

func (s Site) resolve(path string, vars map[string]string) (string, error) {
	base, err := url.Parse(strings.TrimRight(s.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid site base url %q", s.BaseURL)
	}
	for k, v := range vars {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	// Collapse the empty segment left behind by a missing slug.
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// ListURL is the page holding the virtualized list for one locale and view.
func (s Site) ListURL(locale string, view View) (string, error) {
	p := s.ListPath
	if p == "" {
		p = DefaultListPath
	}
	return s.resolve(p, map[string]string{"locale": locale, "view": string(view)})
}

// DetailURL builds a detail page url. The slug is taken verbatim when given,
// else synthesized from the team names, else left out.
func (s Site) DetailURL(locale, matchID, slug, home, away string) (string, error) {
	if strings.TrimSpace(matchID) == "" {
		return "", fmt.Errorf("match id is required")
	}
	p := s.DetailPath
	if p == "" {
		p = DefaultDetailPath
	}
	if slug == "" {
		slug = MatchSlug(home, away)
	}
	return s.resolve(p, map[string]string{"locale": locale, "id": strings.TrimSpace(matchID), "slug": slug})
}

// MatchSlug returns "home-vs-away", or "" unless both names are present.
func MatchSlug(home, away string) string {
	h, a := Slugify(home), Slugify(away)
	if h == "" || a == "" {
		return ""
	}
	return h + "-vs-" + a
}

var foldExtra = strings.NewReplacer("ı", "i", "İ", "i", "ß", "ss", "ø", "o", "Ø", "o", "æ", "ae", "Æ", "ae", "đ", "d", "Đ", "d", "ł", "l", "Ł", "l")

// Slugify lowercases s, folds diacritics to ASCII and joins the remaining
// alphanumeric runs with "-".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldExtra.Replace(s))
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
