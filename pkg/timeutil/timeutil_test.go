package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestLocalToUTCRoundTrip(t *testing.T) {
	for _, tz := range []string{"Europe/Istanbul", "America/Los_Angeles", "Asia/Kolkata", "UTC"} {
		loc := mustLoc(t, tz)
		for _, date := range []string{"2024-01-01", "2024-03-31", "2024-10-27", "2024-12-31"} {
			utc, err := LocalToUTC(date, "20:30", loc)
			require.NoError(t, err)
			require.Equal(t, time.UTC, utc.Location())
			require.Equal(t, "20:30", FormatLocalClock(utc, loc), tz+" "+date)
			require.Equal(t, date, FormatLocalDate(utc, loc), tz+" "+date)
		}
	}
}

func TestLocalToUTCOffset(t *testing.T) {
	utc, err := LocalToUTC("2024-01-01", "20:30", mustLoc(t, "Europe/Istanbul"))
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T17:30:00Z", utc.Format(time.RFC3339))

	_, err = LocalToUTC("2024-01-01", "FT", time.UTC)
	require.Error(t, err)
	_, err = LocalToUTC("01/01/2024", "20:30", time.UTC)
	require.Error(t, err)
}

func TestDataDate(t *testing.T) {
	ist := mustLoc(t, "Europe/Istanbul")
	// 22:30 UTC on Dec 31 is already Jan 1 in Istanbul.
	now := time.Date(2023, 12, 31, 22, 30, 0, 0, time.UTC)
	require.Equal(t, "2024-01-01", DataDate(now, matches.ViewToday, ist))
	require.Equal(t, "2024-01-02", DataDate(now, matches.ViewTomorrow, ist))
	require.Equal(t, "2023-12-31", DataDate(now, matches.ViewToday, time.UTC))

	la := mustLoc(t, "America/Los_Angeles")
	dst := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-11", DataDate(dst, matches.ViewTomorrow, la))
}

func TestParseClock(t *testing.T) {
	h, m, ok := ParseClock("Kick-off 9.05")
	require.True(t, ok)
	require.Equal(t, 9, h)
	require.Equal(t, 5, m)

	h, m, ok = ParseClock("02.01. 20:45")
	require.True(t, ok)
	require.Equal(t, 20, h)
	require.Equal(t, 45, m)

	_, _, ok = ParseClock("Postponed")
	require.False(t, ok)
}

func TestResolveKickoffDate(t *testing.T) {
	loc := mustLoc(t, "Europe/Istanbul")

	d, ok := ResolveKickoffDate("20:30", "2024-01-01T21:30:00Z", "2024-01-01", loc)
	require.True(t, ok)
	require.Equal(t, "2024-01-02", d)

	d, ok = ResolveKickoffDate("31/12 23:00", "", "2025-01-01", loc)
	require.True(t, ok)
	require.Equal(t, "2024-12-31", d)

	d, ok = ResolveKickoffDate("14/11 18:00", "", "2024-11-14", loc)
	require.True(t, ok)
	require.Equal(t, "2024-11-14", d)

	d, ok = ResolveKickoffDate("31/12/24", "", "2025-01-01", loc)
	require.True(t, ok)
	require.Equal(t, "2024-12-31", d)

	d, ok = ResolveKickoffDate("10.10. 19:00", "", "2024-10-10", loc)
	require.True(t, ok)
	require.Equal(t, "2024-10-10", d)

	d, ok = ResolveKickoffDate("02.01.2025 20:00", "", "2025-01-01", loc)
	require.True(t, ok)
	require.Equal(t, "2025-01-02", d)

	d, ok = ResolveKickoffDate("9.05", "", "2025-01-01", loc)
	require.False(t, ok)
	require.Equal(t, "2025-01-01", d)

	d, ok = ResolveKickoffDate("20:30", "", "2025-01-01", loc)
	require.False(t, ok)
	require.Equal(t, "2025-01-01", d)

	d, ok = ResolveKickoffDate("", "1704139200000", "2024-01-01", loc)
	require.True(t, ok)
	require.Equal(t, "2024-01-01", d)
}
