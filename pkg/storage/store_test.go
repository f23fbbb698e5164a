package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/matchfeed/pkg/matches"
)

func snapshot(view matches.View, date string, ids ...string) *matches.MatchListSnapshot {
	s := &matches.MatchListSnapshot{
		View:      view,
		DataDate:  date,
		Locale:    "tr",
		URL:       "https://scores.example.com/tr/football/" + string(view),
		ScrapedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	for i, id := range ids {
		s.Matches = append(s.Matches, matches.MatchSummary{Order: i + 1, MatchID: id, HomeTeam: "H" + id, AwayTeam: "A" + id})
	}
	s.TotalMatches = len(s.Matches)
	return s
}

func detail(id, date string) *matches.MatchDetail {
	return &matches.MatchDetail{
		Locale:     "tr",
		MatchID:    id,
		DataDate:   date,
		Scoreboard: &matches.Scoreboard{Home: matches.TeamScore{Name: "Galatasaray"}, Away: matches.TeamScore{Name: "Fenerbahçe"}},
	}
}

func TestSaveListWritesDatedFileAndAlias(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, s.SaveList(snapshot(matches.ViewToday, "2024-01-01", "1", "2")))
	require.FileExists(t, filepath.Join(dir, "tr", "lists", "2024-01-01.json"))
	require.FileExists(t, filepath.Join(dir, "tr", "lists", "latest.json"))
	require.NoFileExists(t, filepath.Join(dir, "tr", "lists", "upcoming.json"))

	require.NoError(t, s.SaveList(snapshot(matches.ViewTomorrow, "2024-01-02", "3")))
	require.NoError(t, s.SaveList(snapshot(matches.ViewToday, "2024-01-02", "4", "5", "6")))

	cur, err := s.LoadCurrent("tr-TR", matches.ViewToday)
	require.NoError(t, err)
	require.Equal(t, "2024-01-02", cur.DataDate)
	require.Equal(t, 3, cur.TotalMatches)

	up, err := s.LoadCurrent("tr", matches.ViewTomorrow)
	require.NoError(t, err)
	require.Equal(t, "3", up.Matches[0].MatchID)

	// The dated file for the 2nd now holds the later today snapshot.
	dated, err := s.LoadList("tr", "2024-01-02")
	require.NoError(t, err)
	require.Equal(t, matches.ViewToday, dated.View)

	old, err := s.LoadList("tr", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, old.Matches, 2)

	dates, err := s.ListDates("tr")
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01-02", "2024-01-01"}, dates)

	locales, err := s.Locales()
	require.NoError(t, err)
	require.Equal(t, []string{"tr"}, locales)

	leftovers, err := filepath.Glob(filepath.Join(dir, "tr", "lists", ".*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestLoadMissing(t *testing.T) {
	s, err := Open(Options{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = s.LoadList("en", "2024-01-01")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadCurrent("en", matches.ViewTomorrow)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadDetail("en", "42", "")
	require.ErrorIs(t, err, ErrNotFound)

	dates, err := s.ListDates("en")
	require.NoError(t, err)
	require.Empty(t, dates)
}

func TestRejectsUnsafeKeys(t *testing.T) {
	s, err := Open(Options{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = s.LoadList("en", "../../etc/passwd")
	require.Error(t, err)
	_, err = s.LoadDetail("en", "../x", "")
	require.Error(t, err)
	require.Error(t, s.SaveDetail(detail("a/b", "")))
	require.Error(t, s.SaveList(snapshot("yesterday", "2024-01-01")))
	require.Error(t, s.SaveList(snapshot(matches.ViewToday, "")))
}

func TestRejectsLocaleOutsideDataDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)

	for _, lang := range []string{"../escaped", "..", "a/../../b", ".hidden"} {
		snap := snapshot(matches.ViewToday, "2024-01-01", "1")
		snap.Locale = lang
		require.ErrorIs(t, s.SaveList(snap), ErrInvalidKey, lang)

		d := detail("1", "2024-01-01")
		d.Locale = lang
		require.ErrorIs(t, s.SaveDetail(d), ErrInvalidKey, lang)

		_, err = s.LoadList(lang, "2024-01-01")
		require.ErrorIs(t, err, ErrInvalidKey, lang)
		_, err = s.LoadCurrent(lang, matches.ViewToday)
		require.ErrorIs(t, err, ErrInvalidKey, lang)
		_, err = s.LoadDetail(lang, "1", "")
		require.ErrorIs(t, err, ErrInvalidKey, lang)
		_, err = s.ListDates(lang)
		require.ErrorIs(t, err, ErrInvalidKey, lang)
	}

	_, err = os.Stat(filepath.Join(root, "escaped"))
	require.True(t, os.IsNotExist(err))
}

func TestSaveDetailRequiresScoreboard(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)

	d := detail("7", "2024-01-01")
	d.Scoreboard = nil
	err = s.SaveDetail(d)
	require.ErrorIs(t, err, matches.ErrStructureUnrecognized)
	_, statErr := os.Stat(filepath.Join(dir, "tr", "matches", "7.json"))
	require.True(t, os.IsNotExist(statErr))
}

func TestDetailLayouts(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(Options{Dir: dir})
		require.NoError(t, err)
		require.NoError(t, s.SaveDetail(detail("7", "2024-01-01")))
		require.FileExists(t, filepath.Join(dir, "tr", "matches", "7.json"))

		got, err := s.LoadDetail("tr", "7", "2024-01-01")
		require.NoError(t, err)
		require.Equal(t, "Galatasaray", got.Scoreboard.Home.Name)
	})

	t.Run("partitioned", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(Options{Dir: dir, PartitionDetails: true})
		require.NoError(t, err)
		require.NoError(t, s.SaveDetail(detail("7", "2024-01-01")))
		second := detail("7", "2024-01-02")
		second.Scoreboard.StatusLabel = "FT"
		require.NoError(t, s.SaveDetail(second))
		require.FileExists(t, filepath.Join(dir, "tr", "matches", "2024-01-01", "7.json"))
		require.FileExists(t, filepath.Join(dir, "tr", "matches", "2024-01-02", "7.json"))

		got, err := s.LoadDetail("tr", "7", "2024-01-01")
		require.NoError(t, err)
		require.Equal(t, "2024-01-01", got.DataDate)

		newest, err := s.LoadDetail("tr", "7", "")
		require.NoError(t, err)
		require.Equal(t, "FT", newest.Scoreboard.StatusLabel)

		// Without a data date the flat path is used.
		require.NoError(t, s.SaveDetail(detail("8", "")))
		require.FileExists(t, filepath.Join(dir, "tr", "matches", "8.json"))
	})
}
