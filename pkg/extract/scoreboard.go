package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

const (
	maxTeamColumnLen   = 80
	maxCenterColumnLen = 60
)

var sideCodeSel = []string{"[data-code]", "abbr", "[class*='short']", "[class*='code']"}

// FindScoreboard locates the match header by shape: a row of exactly three
// non-empty columns, team on either side, score or kickoff in the middle.
// Rows inside lists and tables are fixtures, not the header.
func FindScoreboard(doc *goquery.Selection) *goquery.Selection {
	if home := doc.Find("[data-side='home']").First(); home.Length() > 0 {
		for p := home.Parent(); p.Length() > 0 && !p.Is("body"); p = p.Parent() {
			if p.Find("[data-side='away']").Length() > 0 {
				if !insideFixture(p) {
					return p
				}
				break
			}
		}
	}
	var found *goquery.Selection
	doc.Find("header, section, div, tr").EachWithBreak(func(_ int, e *goquery.Selection) bool {
		if insideFixture(e) {
			return true
		}
		cols := e.Children().FilterFunction(nonEmpty)
		if cols.Length() != 3 {
			return true
		}
		if isTeamColumn(cols.Eq(0)) && isTeamColumn(cols.Eq(2)) && isCenterColumn(cols.Eq(1)) {
			found = e
			return false
		}
		return true
	})
	return found
}

func insideFixture(e *goquery.Selection) bool {
	return e.Is("li, tr") || e.ParentsFiltered("li, table, a").Length() > 0
}

func isTeamColumn(col *goquery.Selection) bool {
	text := spaced(col)
	if text == "" || len(text) > maxTeamColumnLen || !hasLetter(text) || col.Is(realHeadings) {
		return false
	}
	return col.Find(realHeadings).Length() == 0 && col.Find("ul, ol, table").Length() == 0
}

func isCenterColumn(col *goquery.Selection) bool {
	text := spaced(col)
	if text == "" || len(text) > maxCenterColumnLen {
		return false
	}
	if _, _, ok := parseScore(text); ok {
		return true
	}
	if splitScore(textParts(col)) != "" {
		return true
	}
	for _, part := range textParts(col) {
		if clockOnlyRe.MatchString(part) || strings.EqualFold(part, "vs") || strings.EqualFold(part, "v") || part == "-" {
			return true
		}
	}
	return col.Find("time").Length() > 0
}

// parseScoreboard reads the three columns of a located scoreboard.
func parseScoreboard(sb *goquery.Selection) *matches.Scoreboard {
	var homeCol, centerCol, awayCol *goquery.Selection
	if h := sb.Find("[data-side='home']").First(); h.Length() > 0 {
		homeCol = h
		awayCol = sb.Find("[data-side='away']").First()
		centerCol = sb.Find("[data-side='center'], [class*='score'], [class*='center'], [class*='status']").
			FilterFunction(func(_ int, e *goquery.Selection) bool {
				return e.Closest("[data-side='home'], [data-side='away']").Length() == 0
			}).First()
		if centerCol.Length() == 0 {
			centerCol = sb.Children().FilterFunction(func(i int, e *goquery.Selection) bool {
				return nonEmpty(i, e) && !e.Is("[data-side]") && e.Find("[data-side='home'], [data-side='away']").Length() == 0
			}).First()
		}
	} else {
		cols := sb.Children().FilterFunction(nonEmpty)
		homeCol, centerCol, awayCol = cols.Eq(0), cols.Eq(1), cols.Eq(2)
	}
	if homeCol.Length() == 0 || awayCol.Length() == 0 {
		return nil
	}

	out := &matches.Scoreboard{}
	var homeScore, awayScore string
	out.Home, homeScore = parseTeamColumn(homeCol)
	out.Away, awayScore = parseTeamColumn(awayCol)
	if out.Home.Name == "" || out.Away.Name == "" {
		return nil
	}

	var status []string
	if centerCol != nil && centerCol.Length() > 0 {
		parts := textParts(centerCol)
		if s := splitScore(parts); s != "" {
			i := strings.Index(s, "-")
			homeScore, awayScore = s[:i], s[i+1:]
			out.ScoreText = s
		}
		for _, part := range parts {
			switch {
			case out.ScoreText == "" && scoreRe.MatchString(part):
				homeScore, awayScore, _ = parseScore(part)
				out.ScoreText = homeScore + "-" + awayScore
			case clockOnlyRe.MatchString(part) || fixtureDateRe.MatchString(part):
				if out.KickoffText == "" {
					out.KickoffText = part
				} else {
					out.KickoffText += " " + part
				}
			case hasLetter(part) && !strings.EqualFold(part, "vs") && !strings.EqualFold(part, "v"):
				status = append(status, part)
			}
		}
		if t := centerCol.Find("time[datetime]").First(); t.Length() > 0 {
			out.KickoffIsoUtc = attrAny(t, "datetime")
		}
	}
	if out.KickoffIsoUtc == "" {
		if t := sb.Find("time[datetime]").First(); t.Length() > 0 {
			out.KickoffIsoUtc = attrAny(t, "datetime")
		}
	}
	if out.ScoreText == "" && homeScore != "" && awayScore != "" {
		out.ScoreText = homeScore + "-" + awayScore
	}
	out.Home.Score = atoiPtr(homeScore)
	out.Away.Score = atoiPtr(awayScore)

	out.StatusLabel = strings.Join(status, " ")
	if out.StatusLabel == "" {
		out.StatusLabel = firstText(sb.Parent(), "[data-status]", "[class*='status']", "[class*='state']")
	}
	out.League = leagueNear(sb)
	return out
}

// parseTeamColumn returns the side and any score printed inside the column.
func parseTeamColumn(col *goquery.Selection) (matches.TeamScore, string) {
	side := matches.TeamScore{
		Name:     firstText(col, "[class*='name']", "[itemprop='name']"),
		SideCode: attrAny(col, "data-code", "data-side-code"),
	}
	if side.SideCode == "" {
		side.SideCode = attrAny(col.Find("[data-code]").First(), "data-code")
	}
	if side.SideCode == "" {
		side.SideCode = firstText(col, sideCodeSel[1:]...)
	}
	img := col.Find("img").First()
	if img.Length() > 0 {
		side.LogoURL = attrAny(img, "src", "data-src")
	}

	fromMarkup := side.Name != ""
	var score string
	for _, part := range textParts(col) {
		switch {
		case isNumeric(part) && len(part) <= 2:
			score = part
		case !hasLetter(part) || part == side.Name || part == side.SideCode:
		case side.SideCode == "" && isSideCode(part):
			side.SideCode = part
		case side.Name == "" || (!fromMarkup && len(part) > len(side.Name)):
			side.Name = part
		}
	}
	if side.Name == "" && img.Length() > 0 {
		side.Name = attrAny(img, "alt", "title")
	}
	if side.Name == "" {
		side.Name, side.SideCode = side.SideCode, ""
	}
	if side.SideCode == side.Name {
		side.SideCode = ""
	}
	return side, score
}

func isSideCode(s string) bool {
	if len(s) < 2 || len(s) > 4 {
		return false
	}
	return strings.ToUpper(s) == s && hasLetter(s)
}

func leagueNear(sb *goquery.Selection) string {
	for p, depth := sb, 0; p.Length() > 0 && depth < 2; p, depth = p.Parent(), depth+1 {
		if l := attrAny(p, "data-league", "data-competition"); l != "" {
			return l
		}
		if l := firstText(p, competitionSel[1:]...); l != "" {
			return l
		}
	}
	if crumbs := sb.Closest("body").Find("nav[aria-label*='read'] a, [class*='breadcrumb'] a"); crumbs.Length() > 1 {
		return spaced(crumbs.Eq(crumbs.Length() - 2))
	}
	return ""
}

func atoiPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
