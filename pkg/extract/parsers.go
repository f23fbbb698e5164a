package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

var (
	marketSel      = []string{"[data-market]", "[class*='market']", "[class*='title']", "[class*='label']", "[class*='type']"}
	pickSel        = []string{"[data-pick]", "[class*='pick']", "[class*='tip']", "[class*='selection']", "[class*='outcome']", "[class*='prediction']"}
	oddsSel        = []string{"[data-odds]", "[class*='odd']"}
	probabilitySel = []string{"[class*='prob']", "[class*='percent']", "[class*='chance']"}
	confidenceSel  = []string{"[data-confidence]", "[class*='confidence']", "[class*='rating']"}
	reasoningSel   = []string{"[class*='reason']", "[class*='analysis']", "[class*='comment']", "[class*='desc']", "p"}

	trendLabelSel   = []string{"[class*='label']", "[class*='market']", "[class*='title']", "[class*='name']"}
	trendSummarySel = []string{"[class*='summary']", "[class*='trend']", "[class*='change']", "[class*='movement']"}

	homeSel        = []string{"[data-side='home'] [class*='name']", "[data-side='home']", "[class*='home'] [class*='name']", "[class*='home']"}
	awaySel        = []string{"[data-side='away'] [class*='name']", "[data-side='away']", "[class*='away'] [class*='name']", "[class*='away']"}
	competitionSel = []string{"[data-competition]", "[class*='league']", "[class*='competition']", "[class*='tournament']"}
	resultSel      = []string{"[data-result]", "[class*='result']", "[class*='outcome']", "[class*='badge']"}
)

// resultLetters maps form badges in the supported languages to W/D/L.
var resultLetters = map[string]string{
	"w": "W", "win": "W", "g": "W", "galibiyet": "W", "s": "W",
	"d": "D", "draw": "D", "b": "D", "beraberlik": "D", "u": "D", "e": "D",
	"l": "L", "loss": "L", "m": "L", "mağlubiyet": "L", "n": "L", "p": "L",
}

// parsePredictions reads prediction cards: market, pick, odds, probability,
// confidence and the free-text reasoning when present.
func parsePredictions(container *goquery.Selection) []matches.Prediction {
	out := []matches.Prediction{}
	for _, it := range items(container) {
		if p, ok := parsePrediction(it); ok {
			out = append(out, p)
		}
	}
	return out
}

func parsePrediction(it *goquery.Selection) (matches.Prediction, bool) {
	p := matches.Prediction{
		Market:      firstText(it, marketSel...),
		Pick:        firstText(it, pickSel...),
		Odds:        firstText(it, oddsSel...),
		Probability: firstText(it, probabilitySel...),
		Confidence:  attrAny(it.Find("[data-confidence]").First(), "data-confidence"),
		Reasoning:   firstText(it, reasoningSel...),
	}
	if p.Confidence == "" {
		p.Confidence = firstText(it, confidenceSel...)
	}
	if p.Confidence == "" {
		if stars := it.Find("[class*='star'][class*='fill'], [class*='star'][class*='active']").Length(); stars > 0 {
			p.Confidence = strings.Repeat("★", stars)
		}
	}

	// Whatever the class hints missed, recover from the text runs by shape.
	var rest []string
	for _, part := range textParts(it) {
		switch {
		case p.Odds == "" && oddsRe.MatchString(part):
			p.Odds = part
		case p.Probability == "" && probabilityRe.MatchString(part):
			p.Probability = part
		case part == p.Market || part == p.Pick || part == p.Odds || part == p.Probability ||
			part == p.Confidence || part == p.Reasoning:
		case hasLetter(part) || scoreRe.MatchString(part):
			rest = append(rest, part)
		}
	}
	for _, part := range rest {
		switch {
		case p.Market == "":
			p.Market = part
		case p.Pick == "":
			p.Pick = part
		case p.Reasoning == "" && len(part) > 40:
			p.Reasoning = part
		}
	}
	if p.Reasoning == p.Market || p.Reasoning == p.Pick {
		p.Reasoning = ""
	}
	if p.Market == "" && p.Pick == "" {
		return p, false
	}
	return p, true
}

// parseOddsTrends reads trend rows: a market label followed by the sequence
// of odds it moved through.
func parseOddsTrends(container *goquery.Selection) []matches.OddsTrend {
	out := []matches.OddsTrend{}
	for _, it := range items(container) {
		t := matches.OddsTrend{
			Label:   firstText(it, trendLabelSel...),
			Summary: firstText(it, trendSummarySel...),
			Values:  []string{},
		}
		for _, tok := range tokens(textParts(it)) {
			if oddsRe.MatchString(tok) {
				t.Values = append(t.Values, strings.Replace(tok, ",", ".", 1))
			}
		}
		// Without class hints the first worded run is the market and the last
		// one describes the movement.
		for _, part := range textParts(it) {
			if !hasLetter(part) || part == t.Label || part == t.Summary {
				continue
			}
			if t.Label == "" {
				t.Label = part
			} else if t.Summary == "" || !hasClassHint(it, trendSummarySel) {
				t.Summary = part
			}
		}
		if t.Summary == t.Label {
			t.Summary = ""
		}
		if t.Label == "" || (len(t.Values) == 0 && t.Summary == "") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// parseFixtures reads fixture rows. Containers that group rows per team
// (recent form shows one block per side) contribute the group's caption as
// the row's team.
func parseFixtures(container *goquery.Selection) []matches.FixtureRow {
	out := []matches.FixtureRow{}
	if groups := fixtureGroups(container); len(groups) > 0 {
		for _, g := range groups {
			team := firstText(g, realHeadings, "[class*='title']", "[class*='team-name']", "strong", "caption")
			list := g
			if inner := plausibleWithin(g); inner != nil {
				list = inner
			}
			for _, it := range items(list) {
				if row, ok := parseFixture(it); ok {
					row.Team = team
					out = append(out, row)
				}
			}
		}
		return out
	}
	for _, it := range items(container) {
		if row, ok := parseFixture(it); ok {
			out = append(out, row)
		}
	}
	return out
}

// fixtureGroups returns the per-team blocks of container, or nil when the
// container holds rows directly.
func fixtureGroups(container *goquery.Selection) []*goquery.Selection {
	if container.Is("ul, ol, table") {
		return nil
	}
	var groups []*goquery.Selection
	for _, it := range items(container) {
		caption := it.ChildrenFiltered(realHeadings+", [class*='title'], caption, strong").Length() > 0
		if caption && plausibleWithin(it) != nil {
			groups = append(groups, it)
		}
	}
	if len(groups) < 2 {
		return nil
	}
	return groups
}

func parseFixture(it *goquery.Selection) (matches.FixtureRow, bool) {
	row := matches.FixtureRow{
		HomeTeam:    firstText(it, homeSel...),
		AwayTeam:    firstText(it, awaySel...),
		Competition: attrAny(it.Find("[data-competition]").First(), "data-competition"),
	}
	if row.Competition == "" {
		row.Competition = firstText(it, competitionSel...)
	}
	if t := it.Find("time[datetime]").First(); t.Length() > 0 {
		row.Date = attrAny(t, "datetime")
	}
	if a := it.Find("a[href]").First(); a.Length() > 0 {
		row.URL = attrAny(a, "href")
	} else if it.Is("a[href]") {
		row.URL = attrAny(it, "href")
	}
	if r := firstText(it, resultSel...); r != "" {
		row.Result = resultLetter(r)
	}

	parts := textParts(it)
	if row.Score == "" {
		row.Score = splitScore(parts)
	}
	var names []string
	for _, part := range parts {
		switch {
		case row.Score == "" && scoreRe.MatchString(part):
			h, a, _ := parseScore(part)
			row.Score = h + "-" + a
		case row.Date == "" && fixtureDateRe.MatchString(part) && !hasLetter(part):
			row.Date = fixtureDateRe.FindString(part)
		case row.Result == "" && resultLetter(part) != "":
			row.Result = resultLetter(part)
		case part == row.Competition || part == row.HomeTeam || part == row.AwayTeam:
		case hasLetter(part) && !strings.EqualFold(part, "vs") && !strings.EqualFold(part, "v"):
			names = append(names, part)
		}
	}
	// Home and away usually take the two text runs nearest the score. Any
	// leading run is the competition when the markup did not label it.
	if row.HomeTeam == "" || row.AwayTeam == "" {
		if row.Competition == "" && len(names) >= 3 {
			row.Competition = names[0]
			names = names[1:]
		}
		if row.HomeTeam == "" && len(names) > 0 {
			row.HomeTeam = names[0]
			names = names[1:]
		}
		if row.AwayTeam == "" && len(names) > 0 {
			row.AwayTeam = names[0]
		}
	}
	if row.HomeTeam == "" || row.AwayTeam == "" {
		return row, false
	}
	return row, true
}

func hasClassHint(it *goquery.Selection, selectors []string) bool {
	for _, s := range selectors {
		if it.Find(s).Length() > 0 {
			return true
		}
	}
	return false
}

func resultLetter(s string) string {
	return resultLetters[strings.ToLower(strings.TrimSpace(s))]
}

// splitScore finds a score rendered as three runs ("2", "-", "1").
func splitScore(parts []string) string {
	for i := 0; i+2 < len(parts); i++ {
		if isNumeric(parts[i]) && isNumeric(parts[i+2]) && len(parts[i]) <= 2 && len(parts[i+2]) <= 2 {
			switch parts[i+1] {
			case "-", "–", ":":
				return parts[i] + "-" + parts[i+2]
			}
		}
	}
	return ""
}
