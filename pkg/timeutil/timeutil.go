package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Now is swapped in tests.
var Now = time.Now

var (
	clockRe = regexp.MustCompile(`\b([01]?\d|2[0-3])[:.h]([0-5]\d)\b`)
	// Longer alternatives first: nothing after the month would otherwise stop
	// "12" matching as "1".
	dayMonthRe = regexp.MustCompile(`\b(3[01]|[12]\d|0?[1-9])(?:/(1[0-2]|0?[1-9])(?:/(\d{2,4}))?|\.(1[0-2]|0?[1-9])\.(\d{2,4})?)(?:\D|$)`)
)

// LoadLocation wraps time.LoadLocation and treats "" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("could not load timezone %q: %w", name, err)
	}
	return loc, nil
}

// DataDate returns the calendar date a view refers to at instant now, as seen
// in loc. "tomorrow" is the next calendar day, not now+24h, so DST days are safe.
func DataDate(now time.Time, view matches.View, loc *time.Location) string {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if view == matches.ViewTomorrow {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format(DateLayout)
}

// ParseClock finds the last HH:MM (also HH.MM, HHhMM) in text, so a leading
// date never shadows the time.
func ParseClock(text string) (hour, minute int, ok bool) {
	all := clockRe.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return 0, 0, false
	}
	m := all[len(all)-1]
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, true
}

// LocalToUTC interprets clock text on date in loc and returns the UTC instant.
func LocalToUTC(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", date, err)
	}
	h, m, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, fmt.Errorf("no clock time in %q", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc).UTC(), nil
}

// FormatLocalClock is the reciprocal of LocalToUTC.
func FormatLocalClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ClockLayout)
}

// FormatLocalDate returns the calendar date of t in loc.
func FormatLocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseInstant accepts RFC3339 (with or without seconds) and unix seconds or
// milliseconds, the shapes seen in data attributes and JSON-LD.
func ParseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n), true
		}
		if n > 1e9 {
			return time.Unix(n, 0), true
		}
	}
	return time.Time{}, false
}

// ResolveKickoffDate works out which calendar date a list row belongs to.
// An explicit instant wins; otherwise a dd.mm / dd/mm prefix in the text is
// placed in the year closest to dataDate. Dotted dates need the trailing dot
// ("31.12.") so "9.05" stays a clock time. ok is false when nothing in the row
// names a date, in which case dataDate is returned.
func ResolveKickoffDate(kickoffText, kickoffInstant, dataDate string, loc *time.Location) (string, bool) {
	if t, ok := ParseInstant(kickoffInstant); ok {
		return FormatLocalDate(t, loc), true
	}
	m := dayMonthRe.FindStringSubmatch(kickoffText)
	if m == nil {
		return dataDate, false
	}
	ref, err := time.ParseInLocation(DateLayout, dataDate, loc)
	if err != nil {
		return dataDate, false
	}
	day, _ := strconv.Atoi(m[1])
	monthText, yearText := m[2], m[3]
	if monthText == "" {
		monthText, yearText = m[4], m[5]
	}
	month, _ := strconv.Atoi(monthText)
	if yearText != "" {
		year, _ := strconv.Atoi(yearText)
		if year < 100 {
			year += 2000
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc).Format(DateLayout), true
	}
	best := time.Time{}
	for _, y := range []int{ref.Year() - 1, ref.Year(), ref.Year() + 1} {
		c := time.Date(y, time.Month(month), day, 0, 0, 0, 0, loc)
		if best.IsZero() || absDuration(c.Sub(ref)) < absDuration(best.Sub(ref)) {
			best = c
		}
	}
	return best.Format(DateLayout), true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
