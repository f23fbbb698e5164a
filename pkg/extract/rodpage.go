package extract

import (
	"time"

	"github.com/sw33tLie/matchfeed/pkg/browser"
)

// contentSelectors go from the scoreboard marker out to any main content.
var contentSelectors = []string{
	"[data-side='home']",
	"[class*='scoreboard'], [class*='match-header']",
	"main h1, main h2",
	"body",
}

const tabSelector = "button, [role='tab'], a, li, span"

type rodDetailPage struct {
	s *browser.Session
}

func newRodDetailPage(s *browser.Session) *rodDetailPage {
	return &rodDetailPage{s: s}
}

func (p *rodDetailPage) WaitForContent(timeout time.Duration) error {
	_, err := p.s.WaitAny(contentSelectors, timeout)
	return err
}

func (p *rodDetailPage) HTML() (string, error) {
	return p.s.HTML()
}

func (p *rodDetailPage) ClickTab(labels []string) (bool, error) {
	return p.s.ClickText(tabSelector, labels, 2*time.Second)
}

func (p *rodDetailPage) Sleep(d time.Duration) error {
	return p.s.Sleep(d)
}
