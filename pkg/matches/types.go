package matches

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// View is one of the two supported day windows.
type View string

const (
	ViewToday    View = "today"
	ViewTomorrow View = "tomorrow"
)

// Views lists every supported view in scheduling order.
var Views = []View{ViewToday, ViewTomorrow}

// ParseView accepts "today" or "tomorrow" in any case.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewToday:
		return ViewToday, nil
	case ViewTomorrow:
		return ViewTomorrow, nil
	}
	return "", fmt.Errorf("unknown view %q (want today or tomorrow)", s)
}

// MatchSummary is one row of a harvested match list.
type MatchSummary struct {
	Order           int    `json:"order"`
	MatchID         string `json:"matchId,omitempty"`
	League          string `json:"league"`
	KickoffTime     string `json:"kickoffTime"`
	KickoffIsoUtc   string `json:"kickoffIsoUtc,omitempty"`
	KickoffTimezone string `json:"kickoffTimezone"`
	StatusLabel     string `json:"statusLabel"`
	HomeTeam        string `json:"homeTeam"`
	HomeSideCode    string `json:"homeSideCode,omitempty"`
	AwayTeam        string `json:"awayTeam"`
	AwaySideCode    string `json:"awaySideCode,omitempty"`
}

// MatchListSnapshot is one immutable capture of a list view.
type MatchListSnapshot struct {
	View         View           `json:"view"`
	DataDate     string         `json:"dataDate"`
	Locale       string         `json:"locale"`
	URL          string         `json:"url"`
	ScrapedAt    time.Time      `json:"scrapedAt"`
	TotalMatches int            `json:"totalMatches"`
	Matches      []MatchSummary `json:"matches"`
}

// Top returns at most n matches that carry an id, in list order.
func (s *MatchListSnapshot) Top(n int) []MatchSummary {
	out := make([]MatchSummary, 0, n)
	for _, m := range s.Matches {
		if len(out) >= n {
			break
		}
		if m.MatchID == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// TeamScore is one side of the scoreboard.
type TeamScore struct {
	Name     string `json:"name"`
	SideCode string `json:"sideCode,omitempty"`
	Score    *int   `json:"score,omitempty"`
	LogoURL  string `json:"logoUrl,omitempty"`
}

// Scoreboard is the fixed three-column header of a detail page.
type Scoreboard struct {
	Home          TeamScore `json:"home"`
	Away          TeamScore `json:"away"`
	StatusLabel   string    `json:"statusLabel"`
	ScoreText     string    `json:"scoreText,omitempty"`
	KickoffText   string    `json:"kickoffText,omitempty"`
	KickoffIsoUtc string    `json:"kickoffIsoUtc,omitempty"`
	League        string    `json:"league,omitempty"`
}

// Prediction is a single market tip, used for both highlight and detailed predictions.
type Prediction struct {
	Market      string `json:"market"`
	Pick        string `json:"pick"`
	Odds        string `json:"odds,omitempty"`
	Probability string `json:"probability,omitempty"`
	Confidence  string `json:"confidence,omitempty"`
	Reasoning   string `json:"reasoning,omitempty"`
}

// OddsTrend is one row of the odds-trend section.
type OddsTrend struct {
	Label   string   `json:"label"`
	Values  []string `json:"values"`
	Summary string   `json:"summary,omitempty"`
}

// FixtureRow is a past or upcoming fixture appearing inside a detail page.
type FixtureRow struct {
	Team        string `json:"team,omitempty"`
	Date        string `json:"date,omitempty"`
	Competition string `json:"competition,omitempty"`
	HomeTeam    string `json:"homeTeam"`
	AwayTeam    string `json:"awayTeam"`
	Score       string `json:"score,omitempty"`
	Result      string `json:"result,omitempty"`
	URL         string `json:"url,omitempty"`
}

// MatchDetail holds every extracted section of one detail page.
type MatchDetail struct {
	Locale               string          `json:"locale"`
	MatchID              string          `json:"matchId"`
	URL                  string          `json:"url"`
	ScrapedAt            time.Time       `json:"scrapedAt"`
	DataDate             string          `json:"dataDate,omitempty"`
	ViewContext          View            `json:"viewContext,omitempty"`
	Scoreboard           *Scoreboard     `json:"scoreboard"`
	HighlightPredictions []Prediction    `json:"highlightPredictions"`
	DetailPredictions    []Prediction    `json:"detailPredictions"`
	OddsTrends           []OddsTrend     `json:"oddsTrends"`
	UpcomingMatches      []FixtureRow    `json:"upcomingMatches"`
	RecentForm           []FixtureRow    `json:"recentForm"`
	HeadToHead           []FixtureRow    `json:"headToHead"`
	StructuredData       json.RawMessage `json:"structuredData,omitempty"`
	LastUpdatedAt        time.Time       `json:"lastUpdatedAt"`
}

// Validate enforces the only hard requirement on a detail record.
func (d *MatchDetail) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: empty detail", ErrStructureUnrecognized)
	}
	if d.MatchID == "" {
		return fmt.Errorf("%w: detail has no match id", ErrStructureUnrecognized)
	}
	if d.Scoreboard == nil {
		return fmt.Errorf("%w: scoreboard missing for match %s", ErrStructureUnrecognized, d.MatchID)
	}
	return nil
}
