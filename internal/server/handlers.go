package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/locale"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type datesResponse struct {
	Locale string   `json:"locale"`
	Dates  []string `json:"dates"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, matches.ErrPageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, storage.ErrInvalidKey):
		status = http.StatusBadRequest
	case errors.Is(err, matches.ErrNavigationTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, matches.ErrStructureUnrecognized):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.Log.Errorf("server: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

func queryView(r *http.Request, required bool) (matches.View, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("view"))
	if raw == "" && !required {
		return "", nil
	}
	v, err := matches.ParseView(raw)
	if err != nil {
		return "", badRequest(err.Error())
	}
	return v, nil
}

func queryLocale(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("locale")
	if !locale.Valid(raw) {
		return "", badRequest(fmt.Sprintf("invalid locale %q", raw))
	}
	return locale.Normalize(raw), nil
}

// handleLists returns the snapshot for ?date=, the current one for ?view=,
// or the stored dates when neither is given.
func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	lang, err := queryLocale(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	view, err := queryView(r, false)
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch {
	case date != "":
		snap, err := s.Store.LoadList(lang, date)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case view != "":
		snap, err := s.Store.LoadCurrent(lang, view)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	default:
		dates, err := s.Store.ListDates(lang)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, datesResponse{Locale: lang, Dates: dates})
	}
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	lang, err := queryLocale(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	d, err := s.Store.LoadDetail(lang, id, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleRefresh harvests one list and waits for it. Concurrent calls for
// the same list share one harvest.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	lang, err := queryLocale(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := queryView(r, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// A client hanging up must not cancel a harvest other callers share.
	out, err := s.Scheduler.Refresh(context.WithoutCancel(r.Context()), lang, view)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		s.writeError(w, badRequest("id is required"))
		return
	}
	lang, err := queryLocale(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := queryView(r, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	h, err := s.Scheduler.ScrapeDetail(extract.Request{
		MatchID:  id,
		Slug:     strings.TrimSpace(q.Get("slug")),
		Home:     strings.TrimSpace(q.Get("home")),
		Away:     strings.TrimSpace(q.Get("away")),
		Locale:   lang,
		DataDate: strings.TrimSpace(q.Get("date")),
		View:     view,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Queue.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Scheduler.Statuses())
}
