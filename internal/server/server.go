package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sw33tLie/matchfeed/pkg/extract"
	"github.com/sw33tLie/matchfeed/pkg/matches"
	"github.com/sw33tLie/matchfeed/pkg/queue"
	"github.com/sw33tLie/matchfeed/pkg/scheduler"
)

// Store is the read side of the data store.
type Store interface {
	LoadList(lang, date string) (*matches.MatchListSnapshot, error)
	LoadCurrent(lang string, view matches.View) (*matches.MatchListSnapshot, error)
	LoadDetail(lang, matchID, date string) (*matches.MatchDetail, error)
	ListDates(lang string) ([]string, error)
}

// Scheduler triggers refreshes and scrapes and reports their status.
type Scheduler interface {
	Refresh(ctx context.Context, lang string, view matches.View) (*scheduler.Outcome, error)
	ScrapeDetail(req extract.Request) (queue.Handle, error)
	Statuses() map[string]*scheduler.Status
}

type Queue interface {
	Snapshot() queue.Snapshot
}

type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

type Server struct {
	Store     Store
	Scheduler Scheduler
	Queue     Queue
	Username  string
	Password  string
	Log       Logger
}

func New(store Store, sched Scheduler, q Queue, log Logger) *Server {
	if log == nil {
		log = nopLogger{}
	}
	return &Server{
		Store:     store,
		Scheduler: sched,
		Queue:     q,
		Log:       log,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/lists", s.basicAuth(s.handleLists))
	mux.HandleFunc("GET /api/matches/{id}", s.basicAuth(s.handleMatch))
	mux.HandleFunc("POST /api/refresh", s.basicAuth(s.handleRefresh))
	mux.HandleFunc("POST /api/scrape", s.basicAuth(s.handleScrape))
	mux.HandleFunc("GET /api/queue", s.basicAuth(s.handleQueue))
	mux.HandleFunc("GET /api/status", s.basicAuth(s.handleStatus))

	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Log.Infof("Starting server on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
