package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// Fractional and decimal odds as rendered on cards: 1.85, 2,10, 11/4.
	oddsRe        = regexp.MustCompile(`^\d{1,3}[.,]\d{2}$|^\d{1,2}/\d{1,2}$`)
	probabilityRe = regexp.MustCompile(`^%\s*\d{1,3}(?:[.,]\d+)?$|^\d{1,3}(?:[.,]\d+)?\s*%$`)
	scoreRe       = regexp.MustCompile(`^(\d{1,2})\s*[-–]\s*(\d{1,2})$|^(\d{1,2})\s*:\s*(\d)$`)
	fixtureDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[./]\d{1,2}(?:[./]\d{2,4})?)\b`)
	clockOnlyRe   = regexp.MustCompile(`^([01]?\d|2[0-3])[:.h]([0-5]\d)$`)
	tokenSplitRe  = regexp.MustCompile(`[\s→←↑↓▲▼>|]+`)
)

// textParts returns the trimmed text runs under sel in document order.
// goquery's Text() glues adjacent runs together ("Galatasaray2"), which
// destroys the column boundaries the parsers rely on.
func textParts(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		collectText(n, &out)
	}
	return out
}

func collectText(n *html.Node, out *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := clean(n.Data); t != "" {
			*out = append(*out, t)
		}
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}

// spaced joins the text runs under sel with single spaces.
func spaced(sel *goquery.Selection) string {
	return strings.Join(textParts(sel), " ")
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstText returns the text of the first element under sel matching any of
// selectors, tried in order.
func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		found := sel.Find(s).FilterFunction(func(_ int, e *goquery.Selection) bool {
			return spaced(e) != ""
		}).First()
		if found.Length() > 0 {
			return spaced(found)
		}
	}
	return ""
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
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

func parseScore(s string) (home, away string, ok bool) {
	m := scoreRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	if m[1] != "" {
		return m[1], m[2], true
	}
	return m[3], m[4], true
}

// tokens splits text on whitespace and the arrow glyphs used in odds movement.
func tokens(parts []string) []string {
	var out []string
	for _, p := range parts {
		for _, t := range tokenSplitRe.Split(p, -1) {
			if t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func attrAny(sel *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := sel.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
