package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sw33tLie/matchfeed/pkg/locale"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/timeutil"
)

const (
	listsDir   = "lists"
	matchesDir = "matches"

	aliasToday    = "latest"
	aliasTomorrow = "upcoming"
)

// ErrNotFound is returned by the Load functions when nothing is stored
// under the requested key.
var ErrNotFound = errors.New("not found")

// ErrInvalidKey is returned for locales, dates, views or ids that cannot name
// a file.
var ErrInvalidKey = errors.New("invalid storage key")

var safeName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store keeps snapshots and details as JSON files:
//
//	{dir}/{locale}/lists/{date}.json
//	{dir}/{locale}/lists/latest.json     newest "today" snapshot
//	{dir}/{locale}/lists/upcoming.json   newest "tomorrow" snapshot
//	{dir}/{locale}/matches/{id}.json
//	{dir}/{locale}/matches/{date}/{id}.json   with PartitionDetails
//
// Writes replace whole files. There is no locking: callers keep a single
// writer per key.
type Store struct {
	dir              string
	partitionDetails bool
}

type Options struct {
	Dir string
	// PartitionDetails files details under their data date.
	PartitionDetails bool
}

func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("storage: empty data directory")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", opts.Dir, err)
	}
	return &Store{dir: opts.Dir, partitionDetails: opts.PartitionDetails}, nil
}

func (s *Store) Dir() string { return s.dir }

// AliasName maps a view to the alias file that mirrors its newest snapshot.
func AliasName(view matches.View) (string, error) {
	switch view {
	case matches.ViewToday:
		return aliasToday, nil
	case matches.ViewTomorrow:
		return aliasTomorrow, nil
	}
	return "", fmt.Errorf("%w: view %q", ErrInvalidKey, view)
}

// SaveList writes the dated snapshot and then overwrites the view's alias.
func (s *Store) SaveList(snap *matches.MatchListSnapshot) error {
	if snap == nil {
		return errors.New("storage: nil snapshot")
	}
	if err := checkDate(snap.DataDate); err != nil {
		return err
	}
	alias, err := AliasName(snap.View)
	if err != nil {
		return err
	}
	dir, err := s.listDir(snap.Locale)
	if err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, snap.DataDate+".json"), snap); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, alias+".json"), snap)
}

// SaveDetail writes one match detail. Details without a scoreboard are
// refused.
func (s *Store) SaveDetail(d *matches.MatchDetail) error {
	if d == nil {
		return errors.New("storage: nil detail")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	path, err := s.detailPath(d.Locale, d.MatchID, d.DataDate)
	if err != nil {
		return err
	}
	return writeJSON(path, d)
}

// LoadList reads the snapshot stored for one date.
func (s *Store) LoadList(lang, date string) (*matches.MatchListSnapshot, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	dir, err := s.listDir(lang)
	if err != nil {
		return nil, err
	}
	var snap matches.MatchListSnapshot
	if err := readJSON(filepath.Join(dir, date+".json"), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadCurrent reads the alias for view, the newest snapshot saved for it.
func (s *Store) LoadCurrent(lang string, view matches.View) (*matches.MatchListSnapshot, error) {
	alias, err := AliasName(view)
	if err != nil {
		return nil, err
	}
	dir, err := s.listDir(lang)
	if err != nil {
		return nil, err
	}
	var snap matches.MatchListSnapshot
	if err := readJSON(filepath.Join(dir, alias+".json"), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadDetail reads a match detail. With a date it looks in that partition
// first; without one it takes the flat file or else the newest partition
// holding the match.
func (s *Store) LoadDetail(lang, matchID, date string) (*matches.MatchDetail, error) {
	if !safeName.MatchString(matchID) {
		return nil, fmt.Errorf("%w: match id %q", ErrInvalidKey, matchID)
	}
	root, err := s.localeDir(lang)
	if err != nil {
		return nil, err
	}
	base := filepath.Join(root, matchesDir)
	var candidates []string
	if date != "" {
		if err := checkDate(date); err != nil {
			return nil, err
		}
		candidates = append(candidates, filepath.Join(base, date, matchID+".json"))
	}
	candidates = append(candidates, filepath.Join(base, matchID+".json"))
	if date == "" {
		for _, d := range s.detailDates(base) {
			candidates = append(candidates, filepath.Join(base, d, matchID+".json"))
		}
	}

	for _, path := range candidates {
		var d matches.MatchDetail
		err := readJSON(path, &d)
		if err == nil {
			return &d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("match %s (%s): %w", matchID, locale.Normalize(lang), ErrNotFound)
}

// ListDates returns the dates with a stored snapshot, newest first.
func (s *Store) ListDates(lang string) ([]string, error) {
	dir, err := s.listDir(lang)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	dates := []string{}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if e.IsDir() || name == e.Name() || checkDate(name) != nil {
			continue
		}
		dates = append(dates, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Locales returns every locale with stored data.
func (s *Store) Locales() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() && safeName.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// localeDir is the root for one locale. Every read and write goes through
// it, so a locale can never name a path outside the data directory.
func (s *Store) localeDir(lang string) (string, error) {
	code := locale.Normalize(lang)
	if !safeName.MatchString(code) {
		return "", fmt.Errorf("%w: locale %q", ErrInvalidKey, lang)
	}
	return filepath.Join(s.dir, code), nil
}

func (s *Store) listDir(lang string) (string, error) {
	root, err := s.localeDir(lang)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, listsDir), nil
}

func (s *Store) detailPath(lang, matchID, date string) (string, error) {
	if !safeName.MatchString(matchID) {
		return "", fmt.Errorf("%w: match id %q", ErrInvalidKey, matchID)
	}
	root, err := s.localeDir(lang)
	if err != nil {
		return "", err
	}
	base := filepath.Join(root, matchesDir)
	if s.partitionDetails && date != "" {
		if err := checkDate(date); err != nil {
			return "", err
		}
		return filepath.Join(base, date, matchID+".json"), nil
	}
	return filepath.Join(base, matchID+".json"), nil
}

func (s *Store) detailDates(base string) []string {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	var dates []string
	for _, e := range entries {
		if e.IsDir() && checkDate(e.Name()) == nil {
			dates = append(dates, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func checkDate(date string) error {
	if _, err := time.Parse(timeutil.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidKey, date)
	}
	return nil
}

// writeJSON replaces path with v. Readers see the old file or the new one,
// never a torn write.
func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encoding %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	_, werr := tmp.Write(append(b, '\n'))
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr == nil {
			werr = cerr
		}
		return fmt.Errorf("storage: writing %s: %w", path, werr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: replacing %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("storage: decoding %s: %w", path, err)
	}
	return nil
}
