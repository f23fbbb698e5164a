// Package extract turns a rendered match-detail page into a MatchDetail.
//
// Everything below Parse is pure: it works on a goquery document and is
// tested against recorded fixtures. Extractor adds the live-page concerns on
// top (navigation, the not-found check, switching to the form tab).
package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/locale"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/timeutil"
)

const (
	DefaultWaitTimeout  = 45 * time.Second
	DefaultFormRetries  = 8
	DefaultFormInterval = 750 * time.Millisecond

	// Short bodies are checked in full for not-found phrases; longer ones only
	// through the title and the top heading, where such messages live.
	notFoundBodyLimit = 1500
)

// Result is the pure parse of one document.
type Result struct {
	Title      string
	Detail     *matches.MatchDetail
	Structured *StructuredData
	// Missing lists optional sections whose heading or container was absent.
	Missing []locale.Section
}

var optionalSections = []locale.Section{
	locale.SectionHighlightPredictions,
	locale.SectionDetailPredictions,
	locale.SectionOddsTrends,
	locale.SectionUpcomingMatches,
	locale.SectionRecentForm,
	locale.SectionHeadToHead,
}

// ParseHTML reads a rendered document and parses it.
func ParseHTML(r io.Reader, lang string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return Parse(doc, lang), nil
}

// Parse extracts every section it can find. Missing optional sections come
// back as empty slices; a missing scoreboard leaves Detail.Scoreboard nil.
func Parse(doc *goquery.Document, lang string) *Result {
	root := doc.Selection
	res := &Result{
		Title: clean(doc.Find("title").First().Text()),
		Detail: &matches.MatchDetail{
			Locale:               locale.Normalize(lang),
			HighlightPredictions: []matches.Prediction{},
			DetailPredictions:    []matches.Prediction{},
			OddsTrends:           []matches.OddsTrend{},
			UpcomingMatches:      []matches.FixtureRow{},
			RecentForm:           []matches.FixtureRow{},
			HeadToHead:           []matches.FixtureRow{},
		},
	}
	d := res.Detail

	if sb := FindScoreboard(root); sb != nil {
		d.Scoreboard = parseScoreboard(sb)
	}

	for _, section := range optionalSections {
		found := FindSection(root, locale.HeadingCandidates(lang, section))
		if found == nil {
			res.Missing = append(res.Missing, section)
			continue
		}
		switch section {
		case locale.SectionHighlightPredictions:
			d.HighlightPredictions = parsePredictions(found.Container)
		case locale.SectionDetailPredictions:
			d.DetailPredictions = parsePredictions(found.Container)
		case locale.SectionOddsTrends:
			d.OddsTrends = parseOddsTrends(found.Container)
		case locale.SectionUpcomingMatches:
			d.UpcomingMatches = parseFixtures(found.Container)
		case locale.SectionRecentForm:
			d.RecentForm = parseFixtures(found.Container)
		case locale.SectionHeadToHead:
			d.HeadToHead = parseFixtures(found.Container)
		}
	}

	if sd := parseStructuredData(root); sd != nil {
		res.Structured = sd
		d.StructuredData = sd.Raw
		if d.Scoreboard != nil {
			if d.Scoreboard.KickoffIsoUtc == "" {
				d.Scoreboard.KickoffIsoUtc = sd.StartDate
			}
			if d.Scoreboard.League == "" {
				d.Scoreboard.League = sd.League
			}
		}
	}
	if d.Scoreboard != nil && d.Scoreboard.KickoffIsoUtc != "" {
		if t, ok := timeutil.ParseInstant(d.Scoreboard.KickoffIsoUtc); ok {
			d.Scoreboard.KickoffIsoUtc = t.UTC().Format(time.RFC3339)
		}
	}
	return res
}

// IsNotFound reports whether the document is the site's missing-page view.
func IsNotFound(doc *goquery.Document, lang string) bool {
	phrases := locale.NotFoundPhrases(lang)
	title := doc.Find("title").First().Text()
	heading := spaced(doc.Find("h1").First())
	body := spaced(doc.Find("body"))
	for _, p := range phrases {
		if locale.MatchPhrase(title, p) || locale.MatchPhrase(heading, p) {
			return true
		}
		if len(body) <= notFoundBodyLimit && hasLetter(p) && locale.ContainsFold(body, p) {
			return true
		}
	}
	return false
}

// DetailPage is what the extractor needs from a live detail page.
type DetailPage interface {
	// WaitForContent blocks until the page shows match content, falling back
	// to broader markers. Returning an error is not fatal.
	WaitForContent(timeout time.Duration) error
	HTML() (string, error)
	// ClickTab clicks the first tab whose caption matches one of labels.
	ClickTab(labels []string) (bool, error)
	Sleep(d time.Duration) error
}

// Request identifies one detail page.
type Request struct {
	MatchID  string
	Slug     string
	Home     string
	Away     string
	Locale   string
	DataDate string
	View     matches.View
}

type Options struct {
	WaitTimeout  time.Duration
	FormRetries  int
	FormInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.FormRetries <= 0 {
		o.FormRetries = DefaultFormRetries
	}
	if o.FormInterval < 0 {
		o.FormInterval = 0
	} else if o.FormInterval == 0 {
		o.FormInterval = DefaultFormInterval
	}
	return o
}

// Extractor fetches and parses detail pages, one browser session each.
type Extractor struct {
	runner browser.Runner
	site   matches.Site
	loc    *time.Location
	opts   Options
	log    browser.Logger
	now    func() time.Time
}

// New builds an Extractor. loc is the site timezone; it decides the data
// date of a detail when the caller gives none. nil means UTC.
func New(runner browser.Runner, site matches.Site, loc *time.Location, opts Options, log browser.Logger) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{
		runner: runner,
		site:   site,
		loc:    loc,
		opts:   opts.withDefaults(),
		log:    browser.OrNop(log),
		now:    timeutil.Now,
	}
}

// Extract loads the detail page for req and returns a validated record.
func (e *Extractor) Extract(ctx context.Context, req Request) (*matches.MatchDetail, error) {
	req.Locale = locale.Normalize(req.Locale)
	url, err := e.site.DetailURL(req.Locale, req.MatchID, req.Slug, req.Home, req.Away)
	if err != nil {
		return nil, err
	}
	var detail *matches.MatchDetail
	err = e.runner.Run(ctx, url, func(s *browser.Session) error {
		var err error
		detail, err = e.extractPage(newRodDetailPage(s), req, url)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("detail %s (%s): %w", req.MatchID, req.Locale, err)
	}
	return detail, nil
}

func (e *Extractor) extractPage(page DetailPage, req Request, url string) (*matches.MatchDetail, error) {
	if err := page.WaitForContent(e.opts.WaitTimeout); err != nil {
		e.log.Warnf("detail %s: content markers did not appear (%v), parsing what rendered", req.MatchID, err)
	}

	doc, err := e.read(page)
	if err != nil {
		return nil, err
	}
	if IsNotFound(doc, req.Locale) {
		return nil, fmt.Errorf("%w: %s", matches.ErrPageNotFound, url)
	}
	res := Parse(doc, req.Locale)

	if len(res.Detail.RecentForm) == 0 || len(res.Detail.HeadToHead) == 0 {
		if err := e.switchToForm(page, req, res); err != nil {
			return nil, err
		}
	}
	for _, s := range res.Missing {
		e.log.Debugf("detail %s: section %s not found", req.MatchID, s)
	}

	d := res.Detail
	now := e.now().UTC()
	d.MatchID = strings.TrimSpace(req.MatchID)
	d.URL = url
	d.ScrapedAt = now
	d.LastUpdatedAt = now
	d.DataDate = req.DataDate
	d.ViewContext = req.View
	if d.DataDate == "" && d.Scoreboard != nil {
		if t, ok := timeutil.ParseInstant(d.Scoreboard.KickoffIsoUtc); ok {
			d.DataDate = timeutil.FormatLocalDate(t, e.loc)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Extractor) read(page DetailPage) (*goquery.Document, error) {
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page html: %w", err)
	}
	return doc, nil
}

// switchToForm clicks the form tab and polls until recent form and head to
// head render, then keeps whatever the later reads added. Sections already
// parsed survive a tab that unmounts them.
func (e *Extractor) switchToForm(page DetailPage, req Request, res *Result) error {
	var labels []string
	for _, l := range locale.Chain(req.Locale) {
		labels = append(labels, l.FormTab...)
	}
	clicked, err := page.ClickTab(labels)
	if err != nil {
		return fmt.Errorf("clicking form tab: %w", err)
	}
	if !clicked {
		e.log.Debugf("detail %s: no form tab to switch to", req.MatchID)
		return nil
	}

	for attempt := 1; attempt <= e.opts.FormRetries; attempt++ {
		if err := page.Sleep(e.opts.FormInterval); err != nil {
			return err
		}
		doc, err := e.read(page)
		if err != nil {
			return err
		}
		next := Parse(doc, req.Locale)
		merge(res, next)
		if len(res.Detail.RecentForm) > 0 && len(res.Detail.HeadToHead) > 0 {
			e.log.Debugf("detail %s: form sections rendered after %d polls", req.MatchID, attempt)
			return nil
		}
	}
	e.log.Debugf("detail %s: form sections still incomplete after %d polls", req.MatchID, e.opts.FormRetries)
	return nil
}

// merge fills sections of dst that are empty with the ones next found.
func merge(dst, next *Result) {
	d, n := dst.Detail, next.Detail
	if d.Scoreboard == nil {
		d.Scoreboard = n.Scoreboard
	}
	if len(d.HighlightPredictions) == 0 {
		d.HighlightPredictions = n.HighlightPredictions
	}
	if len(d.DetailPredictions) == 0 {
		d.DetailPredictions = n.DetailPredictions
	}
	if len(d.OddsTrends) == 0 {
		d.OddsTrends = n.OddsTrends
	}
	if len(d.UpcomingMatches) == 0 {
		d.UpcomingMatches = n.UpcomingMatches
	}
	if len(d.RecentForm) == 0 {
		d.RecentForm = n.RecentForm
	}
	if len(d.HeadToHead) == 0 {
		d.HeadToHead = n.HeadToHead
	}
	if len(d.StructuredData) == 0 {
		d.StructuredData = n.StructuredData
		dst.Structured = next.Structured
	}
	var still []locale.Section
	for _, s := range dst.Missing {
		if !found(next, s) {
			still = append(still, s)
		}
	}
	dst.Missing = still
}

func found(r *Result, s locale.Section) bool {
	for _, m := range r.Missing {
		if m == s {
			return false
		}
	}
	return true
}
