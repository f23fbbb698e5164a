package harvest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

// fakeList is a virtualized list: rows are rowHeight tall, and only the rows
// intersecting the viewport (at most window of them) are mounted.
type fakeList struct {
	rows      []Card
	rowHeight float64
	client    float64
	window    int
	top       float64

	tabLabels  []string
	clickedTab []string
	scrolls    int
	reads      int
	noCards    bool
}

func newFakeList(n int, mk func(i int) Card) *fakeList {
	f := &fakeList{rowHeight: 100, client: 300, window: 3}
	for i := 0; i < n; i++ {
		c := mk(i)
		off := float64(i) * f.rowHeight
		c.Offset = &off
		f.rows = append(f.rows, c)
	}
	return f
}

func (f *fakeList) height() float64 { return float64(len(f.rows)) * f.rowHeight }

func (f *fakeList) WaitForCards(time.Duration) error {
	if f.noCards {
		return fmt.Errorf("%w: no cards", matches.ErrNavigationTimeout)
	}
	return nil
}

func (f *fakeList) SelectTab(view matches.View, labels []string) (bool, error) {
	f.clickedTab = append(f.clickedTab, labels...)
	for _, l := range labels {
		for _, want := range f.tabLabels {
			if l == want {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeList) ReadCards() ([]Card, error) {
	f.reads++
	if f.noCards {
		return nil, nil
	}
	first := int(f.top / f.rowHeight)
	var out []Card
	for i := first; i < len(f.rows) && i < first+f.window; i++ {
		c := f.rows[i]
		c.DOMIndex = i - first
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeList) ScrollState() (ScrollState, error) {
	return ScrollState{
		Top:          f.top,
		Height:       f.height(),
		ClientHeight: f.client,
		AtBottom:     f.top+f.client >= f.height()-2,
	}, nil
}

func (f *fakeList) ScrollBy(px float64) error {
	f.scrolls++
	f.top += px
	if max := f.height() - f.client; f.top > max {
		f.top = max
	}
	return nil
}

func (f *fakeList) Sleep(time.Duration) error { return nil }

func card(i int) Card {
	return Card{
		ID:          fmt.Sprintf("%d", 1000+i),
		League:      "Süper Lig",
		KickoffText: fmt.Sprintf("%02d:00", 12+i%10),
		Status:      "Not started",
		Home:        fmt.Sprintf("Home %d", i),
		Away:        fmt.Sprintf("Away %d", i),
	}
}

func newTestHarvester(t *testing.T, opts Options) *Harvester {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	h := New(nil, matches.Site{BaseURL: "https://scores.example.com"}, loc, opts, nil)
	h.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestHarvestVirtualizedList(t *testing.T) {
	f := newFakeList(10, card)
	f.tabLabels = []string{"Bugün"}
	h := newTestHarvester(t, Options{ScrollDelay: -1})

	res, err := h.harvestPage(f, "tr", matches.ViewToday, "2024-01-01")
	require.NoError(t, err)
	require.LessOrEqual(t, f.scrolls, 4)
	require.False(t, res.Truncated)
	require.Empty(t, res.Warnings)

	snap := res.Snapshot
	require.Equal(t, 10, snap.TotalMatches)
	require.Len(t, snap.Matches, 10)
	seen := map[string]bool{}
	for i, m := range snap.Matches {
		require.Equal(t, i+1, m.Order)
		require.Equal(t, fmt.Sprintf("%d", 1000+i), m.MatchID)
		require.False(t, seen[m.MatchID], "duplicate id %s", m.MatchID)
		seen[m.MatchID] = true
	}

	first := snap.Matches[0]
	require.Equal(t, "12:00", first.KickoffTime)
	require.Equal(t, "2024-01-01T09:00:00Z", first.KickoffIsoUtc)
	require.Equal(t, "Europe/Istanbul", first.KickoffTimezone)
	require.Equal(t, "tr", snap.Locale)
	require.Equal(t, "2024-01-01", snap.DataDate)
}

func TestHarvestIsIdempotent(t *testing.T) {
	h := newTestHarvester(t, Options{ScrollDelay: -1})
	var keySets [][]string
	for run := 0; run < 2; run++ {
		f := newFakeList(25, func(i int) Card {
			c := card(i)
			if i%3 == 0 {
				c.ID = ""
			}
			return c
		})
		page := &keyRecorder{fakeList: f, acc: newAccumulator()}
		res, err := h.harvestPage(page, "en", matches.ViewToday, "2024-01-01")
		require.NoError(t, err)
		require.Equal(t, 25, res.Snapshot.TotalMatches)
		keySets = append(keySets, page.acc.keys())
	}
	require.Equal(t, keySets[0], keySets[1])
}

// keyRecorder mirrors every read into its own accumulator so the test can
// compare terminal key sets.
type keyRecorder struct {
	*fakeList
	acc *accumulator
}

func (k *keyRecorder) ReadCards() ([]Card, error) {
	cards, err := k.fakeList.ReadCards()
	k.acc.merge(cards)
	return cards, err
}

func TestHarvestTruncatesAtCap(t *testing.T) {
	f := newFakeList(50, card)
	h := newTestHarvester(t, Options{ScrollDelay: -1, MaxIterations: 3})

	res, err := h.harvestPage(f, "en", matches.ViewToday, "2024-01-01")
	require.NoError(t, err)
	require.True(t, res.Truncated)
	require.Equal(t, 3, res.Iterations)
	require.NotEmpty(t, res.Warnings)
	require.Greater(t, res.Snapshot.TotalMatches, 0)
	require.Less(t, res.Snapshot.TotalMatches, 50)
}

func TestHarvestDropsOtherDays(t *testing.T) {
	f := newFakeList(4, card)
	f.rows[1].KickoffInstant = "2024-01-01T22:30:00Z" // already Jan 2 in Istanbul
	f.rows[3].KickoffText = "31.12. 23:00"
	h := newTestHarvester(t, Options{ScrollDelay: -1})

	res, err := h.harvestPage(f, "en", matches.ViewToday, "2024-01-01")
	require.NoError(t, err)
	require.Equal(t, 4, res.RawCount)
	require.Equal(t, 2, res.DroppedByDate)
	require.Len(t, res.Snapshot.Matches, 2)
	require.Equal(t, "1000", res.Snapshot.Matches[0].MatchID)
	require.Equal(t, "1002", res.Snapshot.Matches[1].MatchID)
	require.Equal(t, 2, res.Snapshot.Matches[1].Order)
}

func TestSummarizeKeepsLateMonths(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	for _, tc := range []struct {
		text, date string
	}{
		{"31/12 20:00", "2024-12-31"},
		{"14/11 18:00", "2024-11-14"},
		{"01.10. 21:45", "2024-10-01"},
	} {
		rows, dropped := summarize([]Card{{ID: "1", KickoffText: tc.text}}, tc.date, loc)
		require.Zero(t, dropped, tc.text)
		require.Len(t, rows, 1, tc.text)
	}

	rows, dropped := summarize([]Card{{ID: "1", KickoffText: "30/11 18:00"}}, "2024-12-01", loc)
	require.Empty(t, rows)
	require.Equal(t, 1, dropped)
}

func TestHarvestTabFallsBackToEnglish(t *testing.T) {
	f := newFakeList(2, card)
	f.tabLabels = []string{"Tomorrow"}
	h := newTestHarvester(t, Options{ScrollDelay: -1})

	res, err := h.harvestPage(f, "tr", matches.ViewTomorrow, "2024-01-02")
	require.NoError(t, err)
	require.Contains(t, f.clickedTab, "Yarın")
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "matched en label")
}

func TestHarvestNoCards(t *testing.T) {
	f := newFakeList(0, card)
	f.noCards = true
	h := newTestHarvester(t, Options{ScrollDelay: -1})

	_, err := h.harvestPage(f, "en", matches.ViewToday, "2024-01-01")
	require.ErrorIs(t, err, matches.ErrStructureUnrecognized)
}

func TestAccumulatorKeepsMinimumHint(t *testing.T) {
	acc := newAccumulator()
	far, near := 900.0, 100.0
	require.Equal(t, 1, acc.merge([]Card{{ID: "7", Offset: &far}}))
	require.Equal(t, 1, acc.merge([]Card{{ID: "7", Offset: &near, Status: "HT"}, {ID: "8", DOMIndex: 0}}))
	got := acc.ordered()
	require.Equal(t, "8", got[0].ID)
	require.Equal(t, "7", got[1].ID)
	require.Equal(t, "HT", got[1].Status)
	require.Equal(t, 100.0, acc.entries["id:7"].hint)
}
