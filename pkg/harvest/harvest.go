package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/locale"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/timeutil"
)

const (
	DefaultScrollDelay   = 600 * time.Millisecond
	DefaultMaxIterations = 400
	DefaultWaitTimeout   = 45 * time.Second

	// stagnantLimit is how many bottom-of-list reads without growth end a run.
	stagnantLimit = 2
	scrollFactor  = 0.9
)

// ScrollState describes the list's scroll container at one instant.
type ScrollState struct {
	Top          float64 `json:"top"`
	Height       float64 `json:"height"`
	ClientHeight float64 `json:"clientHeight"`
	AtBottom     bool    `json:"atBottom"`
}

// ListPage is what the harvester needs from a rendered list page.
type ListPage interface {
	// WaitForCards blocks until at least one card is mounted.
	WaitForCards(timeout time.Duration) error
	// SelectTab activates the tab for view, trying attribute selectors before
	// the given text labels. It reports whether a tab was clicked.
	SelectTab(view matches.View, labels []string) (bool, error)
	ReadCards() ([]Card, error)
	ScrollState() (ScrollState, error)
	ScrollBy(px float64) error
	Sleep(d time.Duration) error
}

type Options struct {
	ScrollDelay   time.Duration
	MaxIterations int
	WaitTimeout   time.Duration
	// CardSelectors overrides the default card selectors, most specific first.
	CardSelectors []string
}

func (o Options) withDefaults() Options {
	if o.ScrollDelay < 0 {
		o.ScrollDelay = 0
	} else if o.ScrollDelay == 0 {
		o.ScrollDelay = DefaultScrollDelay
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if len(o.CardSelectors) == 0 {
		o.CardSelectors = DefaultCardSelectors
	}
	return o
}

// Result is a snapshot plus what happened while collecting it.
type Result struct {
	Snapshot      *matches.MatchListSnapshot `json:"snapshot"`
	Iterations    int                        `json:"iterations"`
	Scrolls       int                        `json:"scrolls"`
	Stagnant      int                        `json:"stagnant"`
	Truncated     bool                       `json:"truncated"`
	RawCount      int                        `json:"rawCount"`
	DroppedByDate int                        `json:"droppedByDate"`
	Warnings      []string                   `json:"warnings,omitempty"`
}

func (r *Result) warn(log browser.Logger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	log.Warnf("%s", msg)
}

// Harvester collects complete match lists from virtualized list pages.
type Harvester struct {
	runner browser.Runner
	site   matches.Site
	loc    *time.Location
	opts   Options
	log    browser.Logger
	now    func() time.Time
}

func New(runner browser.Runner, site matches.Site, loc *time.Location, opts Options, log browser.Logger) *Harvester {
	if loc == nil {
		loc = time.UTC
	}
	return &Harvester{
		runner: runner,
		site:   site,
		loc:    loc,
		opts:   opts.withDefaults(),
		log:    browser.OrNop(log),
		now:    timeutil.Now,
	}
}

// Harvest opens the list page for (lang, view) in a fresh session and returns
// every row belonging to the view's data date.
func (h *Harvester) Harvest(ctx context.Context, lang string, view matches.View) (*Result, error) {
	lang = locale.Normalize(lang)
	url, err := h.site.ListURL(lang, view)
	if err != nil {
		return nil, err
	}
	dataDate := timeutil.DataDate(h.now(), view, h.loc)

	var res *Result
	err = h.runner.Run(ctx, url, func(s *browser.Session) error {
		var err error
		res, err = h.harvestPage(newRodListPage(s, h.opts.CardSelectors), lang, view, dataDate)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("harvest %s/%s: %w", lang, view, err)
	}
	res.Snapshot.URL = url
	return res, nil
}

func (h *Harvester) harvestPage(page ListPage, lang string, view matches.View, dataDate string) (*Result, error) {
	res := &Result{}

	waitErr := page.WaitForCards(h.opts.WaitTimeout)
	if waitErr != nil {
		if !errors.Is(waitErr, matches.ErrNavigationTimeout) {
			return nil, waitErr
		}
		res.warn(h.log, "no match card appeared within %s, reading whatever is rendered", h.opts.WaitTimeout)
	}

	if err := h.selectTab(page, lang, view, res); err != nil {
		return nil, err
	}

	acc, err := h.collect(page, res)
	if err != nil {
		return nil, err
	}
	if acc.len() == 0 && waitErr != nil {
		return nil, fmt.Errorf("%w: no match cards on list page", matches.ErrStructureUnrecognized)
	}

	rows, dropped := summarize(acc.ordered(), dataDate, h.loc)
	res.RawCount = acc.len()
	res.DroppedByDate = dropped
	if dropped > 0 {
		h.log.Debugf("dropped %d rows not dated %s", dropped, dataDate)
	}
	res.Snapshot = &matches.MatchListSnapshot{
		View:         view,
		DataDate:     dataDate,
		Locale:       lang,
		ScrapedAt:    h.now().UTC(),
		TotalMatches: len(rows),
		Matches:      rows,
	}
	return res, nil
}

// selectTab tries the locale's own labels, then the default locale's, then
// stays on whatever tab the page opened with.
func (h *Harvester) selectTab(page ListPage, lang string, view matches.View, res *Result) error {
	for i, labels := range locale.Chain(lang) {
		ok, err := page.SelectTab(view, labels.TabLabels(string(view)))
		if err != nil {
			return fmt.Errorf("selecting %s tab: %w", view, err)
		}
		if ok {
			if i > 0 {
				res.warn(h.log, "%s tab label not found for %s, matched %s label instead", view, lang, labels.Code)
			}
			return page.Sleep(h.opts.ScrollDelay)
		}
	}
	res.warn(h.log, "could not find %s tab for %s, using the default tab", view, lang)
	return nil
}

// collect scrolls the list until it stops growing at the bottom or the
// iteration cap is reached.
func (h *Harvester) collect(page ListPage, res *Result) (*accumulator, error) {
	acc := newAccumulator()
	stagnant := 0
	for res.Iterations < h.opts.MaxIterations {
		res.Iterations++

		cards, err := page.ReadCards()
		if err != nil {
			return nil, fmt.Errorf("reading cards: %w", err)
		}
		added := acc.merge(cards)

		st, err := page.ScrollState()
		if err != nil {
			return nil, fmt.Errorf("reading scroll state: %w", err)
		}
		h.log.Debugf("iteration %d: %d rendered, %d new, %d total, top=%.0f/%.0f", res.Iterations, len(cards), added, acc.len(), st.Top, st.Height)

		if !st.AtBottom {
			stagnant = 0
			step := st.ClientHeight * scrollFactor
			if step < 1 {
				step = 1
			}
			if err := page.ScrollBy(step); err != nil {
				return nil, fmt.Errorf("scrolling: %w", err)
			}
			res.Scrolls++
		} else if added == 0 {
			stagnant++
			if stagnant >= stagnantLimit {
				res.Stagnant = stagnant
				return acc, nil
			}
		} else {
			stagnant = 0
		}
		if err := page.Sleep(h.opts.ScrollDelay); err != nil {
			return nil, err
		}
	}
	res.Stagnant = stagnant
	res.Truncated = true
	res.warn(h.log, "scroll guard exhausted after %d iterations, returning %d rows collected so far", res.Iterations, acc.len())
	return acc, nil
}
