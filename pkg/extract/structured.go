package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// StructuredData is the JSON-LD embedded in a detail page.
type StructuredData struct {
	// Raw holds every valid block verbatim, as an array.
	Raw json.RawMessage
	// StartDate comes from the first SportsEvent (or any Event) block.
	StartDate string
	EventName string
	HomeName  string
	AwayName  string
	League    string
	// FAQ pairs question text with its accepted answer.
	FAQ map[string]string
}

func parseStructuredData(doc *goquery.Selection) *StructuredData {
	var blocks []json.RawMessage
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		body := strings.TrimSpace(s.Text())
		if body == "" || !gjson.Valid(body) {
			return
		}
		blocks = append(blocks, json.RawMessage(body))
	})
	if len(blocks) == 0 {
		return nil
	}

	sd := &StructuredData{FAQ: map[string]string{}}
	sd.Raw, _ = json.Marshal(blocks)
	sports := false
	for _, b := range blocks {
		eachNode(gjson.ParseBytes(b), func(node gjson.Result) {
			types := typeOf(node)
			switch {
			case hasType(types, "SportsEvent"):
				if !sports {
					sd.fillEvent(node)
					sports = true
				}
			case hasType(types, "Event"):
				if !sports && sd.StartDate == "" {
					sd.fillEvent(node)
				}
			case hasType(types, "FAQPage"):
				node.Get("mainEntity").ForEach(func(_, q gjson.Result) bool {
					if text := q.Get("name").String(); text != "" {
						sd.FAQ[text] = q.Get("acceptedAnswer.text").String()
					}
					return true
				})
			}
		})
	}
	return sd
}

func (sd *StructuredData) fillEvent(node gjson.Result) {
	sd.StartDate = node.Get("startDate").String()
	sd.EventName = node.Get("name").String()
	sd.HomeName = nameOf(node.Get("homeTeam"))
	sd.AwayName = nameOf(node.Get("awayTeam"))
	if sd.HomeName == "" {
		if c := node.Get("competitor").Array(); len(c) == 2 {
			sd.HomeName = nameOf(c[0])
			sd.AwayName = nameOf(c[1])
		}
	}
	sd.League = nameOf(node.Get("superEvent"))
}

// eachNode visits a block, its array members and its @graph entries.
func eachNode(r gjson.Result, fn func(gjson.Result)) {
	switch {
	case r.IsArray():
		r.ForEach(func(_, v gjson.Result) bool {
			eachNode(v, fn)
			return true
		})
	case r.IsObject():
		fn(r)
		if g := field(r, "@graph"); g.IsArray() {
			eachNode(g, fn)
		}
	}
}

// field reads a top-level key verbatim. Keys starting with "@" collide with
// gjson's modifier syntax, so they are matched by iteration.
func field(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}

func typeOf(node gjson.Result) []string {
	t := field(node, "@type")
	if t.IsArray() {
		var out []string
		for _, v := range t.Array() {
			out = append(out, v.String())
		}
		return out
	}
	if t.Exists() {
		return []string{t.String()}
	}
	return nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(t, want) || strings.EqualFold(strings.TrimPrefix(t, "schema:"), want) {
			return true
		}
	}
	return false
}

func nameOf(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Get("name").String()
}
