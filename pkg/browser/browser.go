package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultViewportWidth  = 1366
	DefaultViewportHeight = 900
	DefaultNavTimeout     = 45 * time.Second
)

// Logger abstracts logging so callers can use logrus or anything with the same shape.
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

// OrNop returns l, or a logger that discards everything when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// Config describes how sessions are opened.
type Config struct {
	// Bin is the browser executable; empty lets the launcher find or fetch one.
	Bin string
	// RemoteURL connects to an already running browser instead of launching.
	RemoteURL string
	// Proxy is passed to a launched browser, e.g. http://127.0.0.1:8080.
	Proxy string

	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
	TrackingHosts  []string
	Log            Logger
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = DefaultViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = DefaultViewportHeight
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = DefaultNavTimeout
	}
	if c.TrackingHosts == nil {
		c.TrackingHosts = DefaultTrackingHosts
	}
	c.Log = OrNop(c.Log)
	return c
}

// Runner opens one session for url and hands it to fn. It is the seam the
// harvester and extractor depend on.
type Runner interface {
	Run(ctx context.Context, url string, fn func(s *Session) error) error
}

// Controller owns the browser process. Each Run gets its own incognito
// context and page, torn down on every exit path.
type Controller struct {
	cfg Config

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg.withDefaults()}
}

func (c *Controller) NavTimeout() time.Duration {
	return c.cfg.NavTimeout
}

func (c *Controller) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	controlURL := c.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().Headless(c.cfg.Headless).Leakless(true)
		if c.cfg.Bin != "" {
			l = l.Bin(c.cfg.Bin)
		}
		if c.cfg.Proxy != "" {
			l = l.Proxy(c.cfg.Proxy)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("could not launch browser: %w", err)
		}
		c.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if c.launcher != nil {
			c.launcher.Kill()
			c.launcher = nil
		}
		return nil, fmt.Errorf("could not connect to browser: %w", err)
	}
	c.browser = b
	return b, nil
}

// Close shuts the browser down. Safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
	}
	if c.launcher != nil {
		c.launcher.Kill()
		c.launcher.Cleanup()
		c.launcher = nil
	}
	return err
}

// Run opens an isolated session, hardens it, navigates to url and calls fn.
func (c *Controller) Run(ctx context.Context, url string, fn func(s *Session) error) (err error) {
	log := c.cfg.Log
	b, err := c.connect()
	if err != nil {
		return err
	}

	incognito, err := b.Incognito()
	if err != nil {
		return fmt.Errorf("could not open browser context: %w", err)
	}
	defer func() {
		if cerr := incognito.Close(); cerr != nil {
			log.Debugf("closing browser context: %v", cerr)
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("could not open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Debugf("closing page: %v", cerr)
		}
	}()
	page = page.Context(ctx)

	filter, err := NewFilter(url, c.cfg.TrackingHosts)
	if err != nil {
		return fmt.Errorf("bad target url %q: %w", url, err)
	}
	stop, err := c.harden(page, filter)
	if err != nil {
		return err
	}
	defer stop()

	s := &Session{page: page, navTimeout: c.cfg.NavTimeout, log: log}
	if err := s.navigate(url); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("browser session panicked: %v", r)
		}
	}()
	return fn(s)
}

// harden applies viewport, user agent, the analytics script and the request
// router. It must run before the first navigation.
func (c *Controller) harden(page *rod.Page, filter *Filter) (func(), error) {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.cfg.ViewportWidth,
		Height:            c.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("could not set viewport: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: c.cfg.UserAgent}); err != nil {
		return nil, fmt.Errorf("could not set user agent: %w", err)
	}
	if _, err := page.EvalOnNewDocument(HardeningScript(filter.TrackingHosts())); err != nil {
		return nil, fmt.Errorf("could not install hardening script: %w", err)
	}

	log := c.cfg.Log
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		d := filter.Decide(h.Request.URL().String(), h.Request.Type())
		if !d.Allow {
			log.Debugf("blocked %s %s (%s)", h.Request.Type(), h.Request.URL(), d.Reason)
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("could not install request filter: %w", err)
	}
	go router.Run()

	return func() {
		if err := router.Stop(); err != nil {
			log.Debugf("stopping request router: %v", err)
		}
	}, nil
}

// Session is a live page handed to callers for the duration of one Run.
type Session struct {
	page       *rod.Page
	navTimeout time.Duration
	log        Logger
}

func (s *Session) Page() *rod.Page {
	return s.page
}

func (s *Session) navigate(url string) error {
	if err := s.page.Timeout(s.navTimeout).Navigate(url); err != nil {
		return navError(url, err)
	}
	// The load event can hang on long-polling pages; the selector waits that
	// follow are the real readiness check.
	if err := s.page.Timeout(s.navTimeout).WaitLoad(); err != nil {
		if isTimeout(err) {
			s.log.Warnf("load event did not fire for %s within %s, continuing", url, s.navTimeout)
			return nil
		}
		return navError(url, err)
	}
	return nil
}

// Eval runs a JS function expression and decodes its result into out.
func (s *Session) Eval(out interface{}, js string, args ...interface{}) error {
	res, err := s.page.Eval(js, args...)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: eval: %v", matches.ErrNavigationTimeout, err)
		}
		return err
	}
	if out == nil {
		return nil
	}
	return res.Value.Unmarshal(out)
}

// HTML returns the current rendered document.
func (s *Session) HTML() (string, error) {
	return s.page.HTML()
}

// WaitAny waits for the first selector that appears, giving each candidate an
// equal share of timeout. It returns the selector that matched.
func (s *Session) WaitAny(selectors []string, timeout time.Duration) (string, error) {
	if len(selectors) == 0 {
		return "", errors.New("no selectors to wait for")
	}
	share := timeout / time.Duration(len(selectors))
	var lastErr error
	for _, sel := range selectors {
		_, err := s.page.Timeout(share).Element(sel)
		if err == nil {
			return sel, nil
		}
		lastErr = err
		if s.page.GetContext().Err() != nil {
			break
		}
	}
	if isTimeout(lastErr) {
		return "", fmt.Errorf("%w: none of %v appeared within %s", matches.ErrNavigationTimeout, selectors, timeout)
	}
	return "", lastErr
}

// ClickText clicks the first element matching selector whose text matches one
// of labels exactly (case-insensitive). It reports whether anything was clicked.
func (s *Session) ClickText(selector string, labels []string, timeout time.Duration) (bool, error) {
	for _, label := range labels {
		pattern := "/^\\s*" + regexp.QuoteMeta(label) + "\\s*$/i"
		el, err := s.page.Timeout(timeout).ElementR(selector, pattern)
		if err != nil {
			continue
		}
		if err := el.ScrollIntoView(); err != nil {
			s.log.Debugf("scroll into view for %q: %v", label, err)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Sleep suspends for d or until the session context ends.
func (s *Session) Sleep(d time.Duration) error {
	return Sleep(s.page.GetContext(), d)
}

// Sleep suspends for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isTimeout(err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded)
}

func navError(url string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", matches.ErrNavigationTimeout, url, err)
	}
	return fmt.Errorf("navigating to %s: %w", url, err)
}
