package matches

import (
	"fmt"
	"strings"
)

// JobKey identifies the target of a detail scrape. Producers and the queue
// must both build it through DetailJobKey.
type JobKey string

// DetailJobKey builds the dedupe key for one detail scrape, e.g.
// "m:1:2024-01-01:tr:today". Empty date/view parts are kept as empty segments
// so ad hoc and scheduled jobs for the same target never collide by accident.
func DetailJobKey(matchID, dataDate, locale string, view View) JobKey {
	if matchID == "" {
		return ""
	}
	return JobKey(fmt.Sprintf("m:%s:%s:%s:%s",
		strings.TrimSpace(matchID),
		strings.TrimSpace(dataDate),
		normalizeLocale(locale),
		string(view),
	))
}

// ListKey identifies one (locale, view) list refresh.
type ListKey struct {
	Locale string
	View   View
}

func NewListKey(locale string, view View) ListKey {
	return ListKey{Locale: normalizeLocale(locale), View: view}
}

func (k ListKey) String() string {
	return fmt.Sprintf("l:%s:%s", k.Locale, k.View)
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}
