package harvest

import (
	"time"

	"github.com/sw33tLie/matchfeed/pkg/browser"
	"github.com/sw33tLie/matchfeed/pkg/matches"
)

// DefaultCardSelectors are tried in order; the first is the specific card
// marker, the rest are progressively broader.
var DefaultCardSelectors = []string{
	"[data-match-id]",
	"[data-event-id]",
	"[data-testid*='match-card']",
	"a[href*='/match/']",
}

var tabAttributes = []string{"data-view", "data-tab", "data-day", "data-filter", "aria-controls"}

const tabClickTimeout = 3 * time.Second

// readCardsJS collects the mounted cards. It takes the selector list and
// returns the first selector's matches, falling back to broader ones.
const readCardsJS = `(selectors) => {
  let nodes = [];
  for (const sel of selectors) {
    nodes = Array.from(document.querySelectorAll(sel));
    if (nodes.length) break;
  }
  const text = (root, sels) => {
    for (const s of sels) {
      const el = root.querySelector(s);
      if (el && el.textContent.trim()) return el.textContent.trim();
    }
    return "";
  };
  const attr = (root, names) => {
    for (const n of names) {
      const v = root.getAttribute(n);
      if (v) return v;
    }
    return "";
  };
  const offsetOf = (el) => {
    for (let cur = el, depth = 0; cur && depth < 4; cur = cur.parentElement, depth++) {
      const st = cur.style || {};
      const tf = st.transform || "";
      let m = tf.match(/translateY\(\s*(-?[\d.]+)px/) || tf.match(/translate3d\([^,]+,\s*(-?[\d.]+)px/) || tf.match(/translate\([^,]+,\s*(-?[\d.]+)px/);
      if (m) return parseFloat(m[1]);
      if (st.top && /px$/.test(st.top) && (st.position === "absolute" || getComputedStyle(cur).position === "absolute")) {
        return parseFloat(st.top);
      }
    }
    return null;
  };
  const idOf = (el) => {
    const direct = attr(el, ["data-match-id", "data-event-id", "data-id"]);
    if (direct) return direct;
    const a = el.matches("a[href]") ? el : el.querySelector("a[href]");
    if (a) {
      const m = a.getAttribute("href").match(/(\d{3,})(?:[/?#]|$)/);
      if (m) return m[1];
    }
    return "";
  };
  const leagueOf = (el) => {
    const own = attr(el, ["data-league", "data-competition"]) || text(el, ["[class*='league']", "[class*='competition']", "[class*='tournament']"]);
    if (own) return own;
    let cur = el;
    while (cur && cur !== document.body) {
      let sib = cur.previousElementSibling;
      while (sib) {
        if (sib.matches("[class*='league'], [class*='competition'], [class*='tournament'], [data-league], h2, h3, h4")) {
          return sib.getAttribute("data-league") || sib.textContent.trim();
        }
        sib = sib.previousElementSibling;
      }
      cur = cur.parentElement;
      if (cur && cur.matches("[class*='league'], [class*='competition'], [data-league]")) {
        return cur.getAttribute("data-league") || text(cur, ["[class*='title']", "h2", "h3", "h4"]);
      }
    }
    return "";
  };
  const teams = (el) => {
    let home = text(el, ["[data-side='home'] [class*='name']", "[data-side='home']", "[class*='home'] [class*='name']", "[class*='home']"]);
    let away = text(el, ["[data-side='away'] [class*='name']", "[data-side='away']", "[class*='away'] [class*='name']", "[class*='away']"]);
    if (!home || !away) {
      const names = Array.from(el.querySelectorAll("[class*='team'] [class*='name'], [class*='team-name'], [class*='participant']"))
        .map((n) => n.textContent.trim()).filter(Boolean);
      if (names.length >= 2) {
        home = home || names[0];
        away = away || names[1];
      }
    }
    const code = (side) => {
      const c = el.querySelector("[data-side='" + side + "']");
      return c ? (c.getAttribute("data-code") || c.getAttribute("data-side-code") || "") : "";
    };
    return { home, away, homeCode: code("home"), awayCode: code("away") };
  };
  return nodes.map((el, i) => {
    const t = teams(el);
    const timeEl = el.querySelector("time");
    return {
      id: idOf(el),
      league: leagueOf(el),
      kickoffText: (timeEl && timeEl.textContent.trim()) || text(el, ["[data-kickoff]", "[class*='kickoff']", "[class*='time']", "[class*='date']"]),
      kickoffInstant: (timeEl && timeEl.getAttribute("datetime")) || attr(el, ["data-kickoff", "data-start", "data-timestamp"]),
      status: text(el, ["[class*='status']", "[class*='state']", "[data-status]"]),
      home: t.home,
      homeCode: t.homeCode,
      away: t.away,
      awayCode: t.awayCode,
      offset: offsetOf(el),
      domIndex: i,
    };
  });
}`

// scrollerJS locates the element that actually scrolls the list.
const scrollerJS = `
const __scroller = (selectors) => {
  let first = null;
  for (const sel of selectors) {
    first = document.querySelector(sel);
    if (first) break;
  }
  for (let cur = first && first.parentElement; cur && cur !== document.body; cur = cur.parentElement) {
    const oy = getComputedStyle(cur).overflowY;
    if ((oy === "auto" || oy === "scroll") && cur.scrollHeight > cur.clientHeight + 1) return cur;
  }
  return document.scrollingElement || document.documentElement;
};`

const scrollStateJS = `(selectors) => {` + scrollerJS + `
  const s = __scroller(selectors);
  const top = s.scrollTop, height = s.scrollHeight;
  const client = s === document.scrollingElement ? window.innerHeight : s.clientHeight;
  return { top, height, clientHeight: client, atBottom: top + client >= height - 2 };
}`

const scrollByJS = `(selectors, px) => {` + scrollerJS + `
  const s = __scroller(selectors);
  s.scrollTop = s.scrollTop + px;
  s.dispatchEvent(new Event("scroll", { bubbles: true }));
  return s.scrollTop;
}`

const clickTabByAttrJS = `(names, value) => {
  for (const n of names) {
    const el = document.querySelector("[" + n + "='" + value + "'], [" + n + "$='-" + value + "']");
    if (el) {
      el.click();
      return true;
    }
  }
  return false;
}`

type rodListPage struct {
	s         *browser.Session
	selectors []string
}

func newRodListPage(s *browser.Session, selectors []string) *rodListPage {
	return &rodListPage{s: s, selectors: selectors}
}

func (p *rodListPage) WaitForCards(timeout time.Duration) error {
	_, err := p.s.WaitAny(p.selectors, timeout)
	return err
}

func (p *rodListPage) SelectTab(view matches.View, labels []string) (bool, error) {
	var ok bool
	if err := p.s.Eval(&ok, clickTabByAttrJS, tabAttributes, string(view)); err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return p.s.ClickText("button, [role='tab'], a, li, span", labels, tabClickTimeout)
}

func (p *rodListPage) ReadCards() ([]Card, error) {
	var cards []Card
	if err := p.s.Eval(&cards, readCardsJS, p.selectors); err != nil {
		return nil, err
	}
	return cards, nil
}

func (p *rodListPage) ScrollState() (ScrollState, error) {
	var st ScrollState
	err := p.s.Eval(&st, scrollStateJS, p.selectors)
	return st, err
}

func (p *rodListPage) ScrollBy(px float64) error {
	return p.s.Eval(nil, scrollByJS, p.selectors, px)
}

func (p *rodListPage) Sleep(d time.Duration) error {
	return p.s.Sleep(d)
}
