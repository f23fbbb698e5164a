package harvest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/timeutil"
)

// domIndexScale spreads DOM positions far enough apart that they never
// interleave with pixel offsets from the same render.
const domIndexScale = 1000

// Card is one rendered row as read from the page.
type Card struct {
	ID             string   `json:"id"`
	League         string   `json:"league"`
	KickoffText    string   `json:"kickoffText"`
	KickoffInstant string   `json:"kickoffInstant"`
	Status         string   `json:"status"`
	Home           string   `json:"home"`
	HomeCode       string   `json:"homeCode"`
	Away           string   `json:"away"`
	AwayCode       string   `json:"awayCode"`
	Offset         *float64 `json:"offset"`
	DOMIndex       int      `json:"domIndex"`
}

// OrderHint is the card's visual position proxy: its transform offset when
// the list is virtualized, else its DOM position.
func (c Card) OrderHint() float64 {
	if c.Offset != nil {
		return *c.Offset
	}
	return float64(c.DOMIndex * domIndexScale)
}

// Key identifies a card across renders. Rows without a stable id fall back to
// their visible content plus the order hint.
func (c Card) Key() string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return "id:" + id
	}
	return fmt.Sprintf("c:%s|%s|%s|%s|%.0f",
		norm(c.League), norm(c.KickoffText), norm(c.Home), norm(c.Away), c.OrderHint())
}

func norm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type entry struct {
	card Card
	hint float64
	seq  int
}

// accumulator merges partial renders of a virtualized list.
type accumulator struct {
	entries map[string]*entry
	seq     int
}

func newAccumulator() *accumulator {
	return &accumulator{entries: make(map[string]*entry)}
}

// merge adds cards and reports how many keys were new.
func (a *accumulator) merge(cards []Card) int {
	added := 0
	for _, c := range cards {
		k := c.Key()
		hint := c.OrderHint()
		if e, ok := a.entries[k]; ok {
			if hint < e.hint {
				e.hint = hint
			}
			fillBlanks(&e.card, c)
			continue
		}
		a.seq++
		a.entries[k] = &entry{card: c, hint: hint, seq: a.seq}
		added++
	}
	return added
}

// fillBlanks copies fields that a later render populated but an earlier one
// left empty, e.g. a status label that appears after hydration.
func fillBlanks(dst *Card, src Card) {
	set := func(d *string, s string) {
		if strings.TrimSpace(*d) == "" {
			*d = s
		}
	}
	set(&dst.League, src.League)
	set(&dst.KickoffText, src.KickoffText)
	set(&dst.KickoffInstant, src.KickoffInstant)
	set(&dst.Status, src.Status)
	set(&dst.Home, src.Home)
	set(&dst.HomeCode, src.HomeCode)
	set(&dst.Away, src.Away)
	set(&dst.AwayCode, src.AwayCode)
}

func (a *accumulator) len() int {
	return len(a.entries)
}

func (a *accumulator) keys() []string {
	out := make([]string, 0, len(a.entries))
	for k := range a.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ordered returns cards sorted by minimum order hint, first-seen breaking ties.
func (a *accumulator) ordered() []Card {
	list := make([]*entry, 0, len(a.entries))
	for _, e := range a.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].hint != list[j].hint {
			return list[i].hint < list[j].hint
		}
		return list[i].seq < list[j].seq
	})
	out := make([]Card, len(list))
	for i, e := range list {
		out[i] = e.card
	}
	return out
}

// summarize turns ordered cards into numbered rows for dataDate, dropping
// rows whose own kickoff date says they belong to another day.
func summarize(cards []Card, dataDate string, loc *time.Location) (rows []matches.MatchSummary, dropped int) {
	rows = make([]matches.MatchSummary, 0, len(cards))
	for _, c := range cards {
		date, _ := timeutil.ResolveKickoffDate(c.KickoffText, c.KickoffInstant, dataDate, loc)
		if date != dataDate {
			dropped++
			continue
		}
		row := matches.MatchSummary{
			Order:           len(rows) + 1,
			MatchID:         strings.TrimSpace(c.ID),
			League:          clean(c.League),
			KickoffTime:     clean(c.KickoffText),
			KickoffTimezone: loc.String(),
			StatusLabel:     clean(c.Status),
			HomeTeam:        clean(c.Home),
			HomeSideCode:    clean(c.HomeCode),
			AwayTeam:        clean(c.Away),
			AwaySideCode:    clean(c.AwayCode),
		}
		if t, ok := timeutil.ParseInstant(c.KickoffInstant); ok {
			row.KickoffIsoUtc = t.UTC().Format(time.RFC3339)
			row.KickoffTime = timeutil.FormatLocalClock(t, loc)
		} else if t, err := timeutil.LocalToUTC(date, c.KickoffText, loc); err == nil {
			row.KickoffIsoUtc = t.Format(time.RFC3339)
			row.KickoffTime = timeutil.FormatLocalClock(t, loc)
		}
		rows = append(rows, row)
	}
	return rows, dropped
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
