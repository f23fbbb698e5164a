package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/harvest"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/queue"
)

type fakeHarvester struct {
	calls   int32
	block   chan struct{}
	entered chan string
	fail    map[string]error
	ids     []string
}

func (f *fakeHarvester) Harvest(_ context.Context, lang string, view matches.View) (*harvest.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	key := matches.NewListKey(lang, view).String()
	if f.entered != nil {
		f.entered <- key
	}
	if f.block != nil {
		<-f.block
	}
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	snap := &matches.MatchListSnapshot{View: view, DataDate: "2024-01-01", Locale: lang}
	for i, id := range f.ids {
		snap.Matches = append(snap.Matches, matches.MatchSummary{Order: i + 1, MatchID: id, HomeTeam: "Home " + id, AwayTeam: "Away " + id})
	}
	snap.TotalMatches = len(snap.Matches)
	return &harvest.Result{Snapshot: snap, Warnings: []string{"tab fallback"}}, nil
}

type fakeExtractor struct {
	mu   sync.Mutex
	reqs []extract.Request
}

func (f *fakeExtractor) Extract(_ context.Context, req extract.Request) (*matches.MatchDetail, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if req.MatchID == "bad" {
		return nil, matches.ErrPageNotFound
	}
	return &matches.MatchDetail{
		MatchID:    req.MatchID,
		Locale:     req.Locale,
		DataDate:   req.DataDate,
		Scoreboard: &matches.Scoreboard{Home: matches.TeamScore{Name: req.Home}, Away: matches.TeamScore{Name: req.Away}},
	}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	lists   []*matches.MatchListSnapshot
	details map[string]*matches.MatchDetail
}

func (f *fakeStore) SaveList(s *matches.MatchListSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, s)
	return nil
}

func (f *fakeStore) SaveDetail(d *matches.MatchDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.details == nil {
		f.details = map[string]*matches.MatchDetail{}
	}
	f.details[d.Locale+"/"+d.MatchID] = d
	return nil
}

type fixture struct {
	h  *fakeHarvester
	e  *fakeExtractor
	st *fakeStore
	q  *queue.Queue
	s  *Scheduler
}

func newFixture(t *testing.T, h *fakeHarvester, cfg Config) *fixture {
	t.Helper()
	f := &fixture{h: h, e: &fakeExtractor{}, st: &fakeStore{}, q: queue.New(queue.Options{Concurrency: 1, Cooldown: -1})}
	cfg.Harvester, cfg.Extractor, cfg.Store, cfg.Queue = f.h, f.e, f.st, f.q
	s, err := New(cfg)
	require.NoError(t, err)
	f.s = s
	t.Cleanup(f.q.Close)
	return f
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.q.Wait(ctx))
}

func TestRefreshSavesListAndQueuesTopN(t *testing.T) {
	f := newFixture(t, &fakeHarvester{ids: []string{"1", "", "2", "3", "4"}}, Config{TopN: 3})

	out, err := f.s.Refresh(context.Background(), "tr-TR", matches.ViewToday)
	require.NoError(t, err)
	require.False(t, out.Shared)
	require.Len(t, out.Handles, 3)
	require.Len(t, f.st.lists, 1)
	f.drain(t)

	require.Len(t, f.st.details, 3)
	require.Contains(t, f.st.details, "tr/1")
	require.Contains(t, f.st.details, "tr/3")
	require.NotContains(t, f.st.details, "tr/4")
	for _, r := range f.e.reqs {
		require.Equal(t, "2024-01-01", r.DataDate)
		require.Equal(t, matches.ViewToday, r.View)
		require.Equal(t, "Home "+r.MatchID, r.Home)
	}

	st := f.s.Statuses()["l:tr:today"]
	require.NotNil(t, st)
	require.True(t, st.Success)
	require.Equal(t, 5, st.Matches)
	require.Equal(t, 3, st.Enqueued)
	require.Equal(t, []string{"tab fallback"}, st.Warnings)
}

func TestRefreshCoalescesSameKey(t *testing.T) {
	h := &fakeHarvester{block: make(chan struct{}), entered: make(chan string, 4), ids: []string{"1"}}
	f := newFixture(t, h, Config{})

	var wg sync.WaitGroup
	outs := make([]*Outcome, 2)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.s.Refresh(context.Background(), "en", matches.ViewTomorrow)
			if err == nil {
				outs[i] = out
			}
		}(i)
		if i == 0 {
			<-h.entered
		}
	}
	// Give the second caller time to join the first.
	time.Sleep(50 * time.Millisecond)
	close(h.block)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&h.calls))
	require.NotNil(t, outs[0])
	require.NotNil(t, outs[1])
	require.True(t, outs[0].Shared || outs[1].Shared)
	require.Len(t, f.st.lists, 1)
	f.drain(t)
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	h := &fakeHarvester{block: make(chan struct{}), entered: make(chan string, 4)}
	f := newFixture(t, h, Config{})

	var wg sync.WaitGroup
	for _, view := range matches.Views {
		wg.Add(1)
		go func(view matches.View) {
			defer wg.Done()
			_, _ = f.s.Refresh(context.Background(), "en", view)
		}(view)
	}
	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case k := <-h.entered:
			seen[k] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("only %v entered the harvester", seen)
		}
	}
	close(h.block)
	wg.Wait()
	require.Equal(t, int32(2), atomic.LoadInt32(&h.calls))
}

func TestRunPassIsolatesFailures(t *testing.T) {
	boom := errors.New("navigation timeout")
	h := &fakeHarvester{
		ids:  []string{"7", "bad"},
		fail: map[string]error{"l:tr:today": boom},
	}
	f := newFixture(t, h, Config{Locales: []string{"en", "tr"}})

	err := f.s.RunPass(context.Background())
	require.ErrorIs(t, err, boom)
	f.drain(t)

	statuses := f.s.Statuses()
	require.Len(t, statuses, 4)
	require.False(t, statuses["l:tr:today"].Success)
	require.Equal(t, boom.Error(), statuses["l:tr:today"].Error)
	require.True(t, statuses["l:tr:tomorrow"].Success)
	require.Len(t, f.st.lists, 3)

	// Each surviving list queues both matches under its own key. The
	// failing "bad" jobs never block "7".
	require.Contains(t, f.st.details, "en/7")
	require.Contains(t, f.st.details, "tr/7")
	require.NotContains(t, f.st.details, "en/bad")
	require.Equal(t, 0, f.q.Snapshot().Active)
	require.Equal(t, 3, f.q.Snapshot().Failed)
}

func TestScrapeDetailDedupes(t *testing.T) {
	f := newFixture(t, &fakeHarvester{}, Config{})
	block := make(chan struct{})
	// Occupy the only worker so both scrapes stay pending.
	_, err := f.q.Enqueue(func(context.Context) error { <-block; return nil }, queue.Metadata{})
	require.NoError(t, err)

	req := extract.Request{MatchID: "1", Locale: "tr", DataDate: "2024-01-01", View: matches.ViewToday}
	first, err := f.s.ScrapeDetail(req)
	require.NoError(t, err)
	require.Equal(t, 2, first.QueuePosition)
	second, err := f.s.ScrapeDetail(req)
	require.NoError(t, err)
	require.True(t, second.AlreadyQueued)
	require.Equal(t, first.TaskID, second.TaskID)

	_, err = f.s.ScrapeDetail(extract.Request{Locale: "tr"})
	require.Error(t, err)

	close(block)
	f.drain(t)
	require.Len(t, f.e.reqs, 1)
}

func TestStartRunsImmediatePass(t *testing.T) {
	h := &fakeHarvester{entered: make(chan string, 8)}
	f := newFixture(t, h, Config{Locales: []string{"en"}, Views: []matches.View{matches.ViewToday}, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.s.Start(ctx))
	require.Error(t, f.s.Start(ctx))

	select {
	case k := <-h.entered:
		require.Equal(t, "l:en:today", k)
	case <-time.After(5 * time.Second):
		t.Fatal("no pass ran at startup")
	}
	f.s.Stop()
}
