package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sw33tLie/matchfeed/pkg/locale"
)

const (
	// maxHeadingLen bounds how much text an element may carry and still be
	// treated as a heading rather than a block that merely mentions the phrase.
	maxHeadingLen = 80
	// climbLevels is how many ancestor levels the container search walks.
	climbLevels = 4
	// siblingScan is how many following siblings are inspected per level.
	siblingScan = 4
)

// Heading tiers, tried in order. Real headings always win over styled text.
var headingTiers = []string{
	"h1, h2, h3, h4, h5, h6, [role='heading']",
	"legend, caption, summary, header, strong, b, p, span, div, dt, th",
}

const realHeadings = "h1, h2, h3, h4, h5, h6, [role='heading']"

// Section is a located heading and the container holding its records.
type Section struct {
	Heading   *goquery.Selection
	Container *goquery.Selection
	Matched   string
}

// FindSection locates the data container for the first candidate phrase that
// appears in a heading. It returns nil when no heading matches or no
// plausible container sits near the heading.
func FindSection(doc *goquery.Selection, candidates []string) *Section {
	h, phrase := findHeading(doc, candidates)
	if h == nil {
		return nil
	}
	c := containerAfter(h)
	if c == nil {
		return nil
	}
	return &Section{Heading: h, Container: c, Matched: phrase}
}

// findHeading prefers a heading whose whole text is the phrase. Only when no
// heading matches exactly does containment count, so "Son Maçlar" does not
// land on an earlier "Aralarındaki Son Maçlar".
func findHeading(doc *goquery.Selection, candidates []string) (*goquery.Selection, string) {
	if h, phrase := scanHeadings(doc, candidates, equalFold); h != nil {
		return h, phrase
	}
	return scanHeadings(doc, candidates, locale.ContainsFold)
}

func equalFold(text, phrase string) bool {
	p := locale.Fold(phrase)
	return p != "" && locale.Fold(text) == p
}

func scanHeadings(doc *goquery.Selection, candidates []string, match func(text, phrase string) bool) (*goquery.Selection, string) {
	for _, tier := range headingTiers {
		for _, phrase := range candidates {
			var hit *goquery.Selection
			doc.Find(tier).EachWithBreak(func(_ int, e *goquery.Selection) bool {
				if e.Is("button, a, [role='tab']") || e.ParentsFiltered("button, a, [role='tab'], [role='tablist'], nav").Length() > 0 {
					return true
				}
				text := spaced(e)
				if len(text) == 0 || len(text) > maxHeadingLen {
					return true
				}
				// A block-level wrapper matches through its heading child; only
				// accept it when it is the innermost match.
				if e.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
					return match(spaced(c), phrase)
				}).Length() > 0 {
					return true
				}
				if match(text, phrase) {
					hit = e
					return false
				}
				return true
			})
			if hit != nil {
				return hit, phrase
			}
		}
	}
	return nil, ""
}

// containerAfter walks forward from the heading through following siblings,
// then repeats from each ancestor, until a list, table or grid turns up.
// Reaching another real heading ends the search: that content belongs to a
// different section.
func containerAfter(h *goquery.Selection) *goquery.Selection {
	cur := h
	for level := 0; level <= climbLevels; level++ {
		sib := cur.Next()
		for i := 0; i < siblingScan && sib.Length() > 0; i++ {
			if sib.Is(realHeadings) {
				return nil
			}
			if plausible(sib) {
				return sib
			}
			if sib.Find(realHeadings).Length() > 0 {
				return nil
			}
			if inner := plausibleWithin(sib); inner != nil {
				return inner
			}
			sib = sib.Next()
		}
		parent := cur.Parent()
		if parent.Length() == 0 || parent.Is("body, html, main") {
			break
		}
		cur = parent
	}
	return nil
}

func plausibleWithin(sel *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	sel.Find("ul, ol, table, div, section").EachWithBreak(func(_ int, e *goquery.Selection) bool {
		if plausible(e) {
			found = e
			return false
		}
		return true
	})
	return found
}

// plausible reports whether sel looks like a record container: a list with
// items, a table with body rows, or an element with at least two children of
// the same shape.
func plausible(sel *goquery.Selection) bool {
	switch {
	case sel.Is("ul, ol"):
		return sel.ChildrenFiltered("li").FilterFunction(nonEmpty).Length() >= 1
	case sel.Is("table"):
		return len(tableRows(sel)) >= 1
	case sel.Is("script, style, svg, img, button, input"):
		return false
	}
	kids := sel.Children().FilterFunction(nonEmpty)
	if kids.Length() < 2 {
		return false
	}
	shapes := map[string]int{}
	kids.Each(func(_ int, k *goquery.Selection) {
		shapes[shape(k)]++
	})
	for _, n := range shapes {
		if n >= 2 {
			return true
		}
	}
	return false
}

// shape identifies an element by tag and child-tag sequence, ignoring class
// names, which churn between deployments.
func shape(sel *goquery.Selection) string {
	var b strings.Builder
	b.WriteString(goquery.NodeName(sel))
	b.WriteByte('>')
	sel.Children().Each(func(_ int, c *goquery.Selection) {
		b.WriteString(goquery.NodeName(c))
		b.WriteByte(',')
	})
	return b.String()
}

func nonEmpty(_ int, s *goquery.Selection) bool {
	return spaced(s) != ""
}

// items returns the record elements of a container.
func items(container *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	switch {
	case container.Is("table"):
		return tableRows(container)
	case container.Is("ul, ol"):
		container.ChildrenFiltered("li").FilterFunction(nonEmpty).Each(func(_ int, li *goquery.Selection) {
			out = append(out, li)
		})
	default:
		container.Children().FilterFunction(nonEmpty).Each(func(_ int, c *goquery.Selection) {
			if c.Is(realHeadings) {
				return
			}
			out = append(out, c)
		})
	}
	return out
}

// tableRows returns data rows, skipping header-only rows.
func tableRows(table *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.ParentsFiltered("thead").Length() > 0 || tr.ChildrenFiltered("td").Length() == 0 {
			return
		}
		if spaced(tr) == "" {
			return
		}
		out = append(out, tr)
	})
	return out
}
