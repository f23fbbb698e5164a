// Package scheduler refreshes every (locale, view) list on a fixed interval
// and queues detail scrapes for the top of each fresh list.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/harvest"
	"github.com/sw33tLie/matchfeed/pkg/locale"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/queue"
)

const (
	DefaultInterval = 3 * time.Hour
	DefaultTopN     = 50
)

// Logger abstracts logging so callers can use logrus or anything with the
// same four methods.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

type Harvester interface {
	Harvest(ctx context.Context, lang string, view matches.View) (*harvest.Result, error)
}

type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (*matches.MatchDetail, error)
}

type Store interface {
	SaveList(snap *matches.MatchListSnapshot) error
	SaveDetail(d *matches.MatchDetail) error
}

type Enqueuer interface {
	Enqueue(task queue.Task, meta queue.Metadata) (queue.Handle, error)
}

type Config struct {
	Harvester Harvester
	Extractor Extractor
	Store     Store
	Queue     Enqueuer

	Locales  []string       // defaults to every supported locale
	Views    []matches.View // defaults to matches.Views
	Interval time.Duration  // defaults to 3h
	TopN     int            // detail jobs per fresh list, defaults to 50
	Log      Logger         // optional; nil = no logging
}

// Status holds the result of the last refresh of one (locale, view) key.
type Status struct {
	Key           string        `json:"key"`
	Locale        string        `json:"locale"`
	View          matches.View  `json:"view"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"durationNs"`
	Success       bool          `json:"success"`
	DataDate      string        `json:"dataDate,omitempty"`
	Matches       int           `json:"matches"`
	Enqueued      int           `json:"enqueued"`
	AlreadyQueued int           `json:"alreadyQueued"`
	Truncated     bool          `json:"truncated,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Outcome is what a refresh returns. Callers that joined an in-flight
// refresh get the same Outcome with Shared set.
type Outcome struct {
	Result  *harvest.Result `json:"result"`
	Handles []queue.Handle  `json:"handles"`
	Shared  bool            `json:"shared"`
}

type Scheduler struct {
	cfg Config
	log Logger
	now func() time.Time

	group singleflight.Group

	statusMu sync.RWMutex
	statuses map[string]*Status

	cronMu sync.Mutex
	cron   *cron.Cron
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Harvester == nil || cfg.Extractor == nil || cfg.Store == nil || cfg.Queue == nil {
		return nil, errors.New("scheduler: harvester, extractor, store and queue are required")
	}
	if len(cfg.Locales) == 0 {
		cfg.Locales = locale.Codes()
	}
	if len(cfg.Views) == 0 {
		cfg.Views = matches.Views
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	return &Scheduler{
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		statuses: make(map[string]*Status),
	}, nil
}

// Start runs a pass immediately and then every Interval until ctx is done
// or Stop is called. A pass still running when the next one is due makes
// the next one skip.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler: already started")
	}

	cl := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(cl))
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		if err := s.RunPass(ctx); err != nil {
			s.log.Warnf("scheduler: pass finished with errors: %v", err)
		}
	}))
	if _, err := c.AddJob(fmt.Sprintf("@every %s", s.cfg.Interval), job); err != nil {
		return fmt.Errorf("scheduler: scheduling every %s: %w", s.cfg.Interval, err)
	}
	s.cron = c
	s.log.Infof("Starting refresh scheduler (interval: %s, locales: %v, views: %v)", s.cfg.Interval, s.cfg.Locales, s.cfg.Views)

	go job.Run()
	c.Start()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running pass to return.
func (s *Scheduler) Stop() {
	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// RunPass refreshes every configured key concurrently. A failing key is
// logged and recorded in its Status; it never stops the others.
func (s *Scheduler) RunPass(ctx context.Context) error {
	start := s.now()
	s.log.Infof("Starting refresh pass...")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, lang := range s.cfg.Locales {
		for _, view := range s.cfg.Views {
			wg.Add(1)
			go func(lang string, view matches.View) {
				defer wg.Done()
				if _, err := s.Refresh(ctx, lang, view); err != nil {
					s.log.Errorf("scheduler: refreshing %s/%s: %v", lang, view, err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(lang, view)
		}
	}
	wg.Wait()

	s.log.Infof("Refresh pass completed in %s", s.now().Sub(start).Round(time.Second))
	return errors.Join(errs...)
}

// Refresh harvests one list, saves it and queues its top matches. Calls
// for a key that is already refreshing wait for that refresh instead of
// opening another browser session.
func (s *Scheduler) Refresh(ctx context.Context, lang string, view matches.View) (*Outcome, error) {
	key := matches.NewListKey(locale.Normalize(lang), view)
	v, err, shared := s.group.Do(key.String(), func() (interface{}, error) {
		return s.refresh(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*Outcome)
	out.Shared = shared
	return &out, nil
}

func (s *Scheduler) refresh(ctx context.Context, key matches.ListKey) (*Outcome, error) {
	st := &Status{Key: key.String(), Locale: key.Locale, View: key.View, StartedAt: s.now()}
	defer func() {
		st.Duration = s.now().Sub(st.StartedAt)
		s.setStatus(st)
	}()

	res, err := s.cfg.Harvester.Harvest(ctx, key.Locale, key.View)
	if err != nil {
		st.Error = err.Error()
		return nil, err
	}
	st.DataDate = res.Snapshot.DataDate
	st.Matches = res.Snapshot.TotalMatches
	st.Truncated = res.Truncated
	st.Warnings = res.Warnings

	if err := s.cfg.Store.SaveList(res.Snapshot); err != nil {
		st.Error = err.Error()
		return nil, fmt.Errorf("saving %s list: %w", key, err)
	}

	out := &Outcome{Result: res, Handles: []queue.Handle{}}
	for _, m := range res.Snapshot.Top(s.cfg.TopN) {
		h, err := s.ScrapeDetail(extract.Request{
			MatchID:  m.MatchID,
			Home:     m.HomeTeam,
			Away:     m.AwayTeam,
			Locale:   res.Snapshot.Locale,
			DataDate: res.Snapshot.DataDate,
			View:     res.Snapshot.View,
		})
		if err != nil {
			s.log.Warnf("scheduler: could not queue match %s: %v", m.MatchID, err)
			continue
		}
		if h.AlreadyQueued {
			st.AlreadyQueued++
		} else {
			st.Enqueued++
		}
		out.Handles = append(out.Handles, h)
	}
	st.Success = true
	s.log.Infof("Refreshed %s: %d matches for %s, %d detail jobs queued (%d already queued)",
		key, st.Matches, st.DataDate, st.Enqueued, st.AlreadyQueued)
	return out, nil
}

// ScrapeDetail queues one detail scrape keyed by matches.DetailJobKey. The
// job extracts the page and saves the record.
func (s *Scheduler) ScrapeDetail(req extract.Request) (queue.Handle, error) {
	req.Locale = locale.Normalize(req.Locale)
	key := matches.DetailJobKey(req.MatchID, req.DataDate, req.Locale, req.View)
	if key == "" {
		return queue.Handle{}, errors.New("scheduler: match id is required")
	}
	return s.cfg.Queue.Enqueue(func(ctx context.Context) error {
		d, err := s.cfg.Extractor.Extract(ctx, req)
		if err != nil {
			return err
		}
		return s.cfg.Store.SaveDetail(d)
	}, queue.Metadata{
		DedupeKey: key,
		Label:     fmt.Sprintf("detail %s (%s)", req.MatchID, req.Locale),
	})
}

func (s *Scheduler) setStatus(st *Status) {
	s.statusMu.Lock()
	s.statuses[st.Key] = st
	s.statusMu.Unlock()
}

// Statuses returns a copy of the last status of every key.
func (s *Scheduler) Statuses() map[string]*Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	out := make(map[string]*Status, len(s.statuses))
	for k, v := range s.statuses {
		cp := *v
		out[k] = &cp
	}
	return out
}

type cronLogger struct {
	log Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
