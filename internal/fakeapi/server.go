// Package fakeapi is an in-memory implementation of the habit-tracker REST
// API. It backs the client's integration tests and the dev-server command.
//
// State lives in process memory only. Habits must be registered with
// AddHabit before completion endpoints accept them.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Server serves the REST contract from memory.
type Server struct {
	mu       sync.Mutex
	habits   map[int64]*habit
	trackers map[int64]json.RawMessage
	nextID   int64
	failures []int
	now      func() time.Time
	root     *mux.Router
	router   *mux.Router
}

type habit struct {
	completions map[string]*completion
}

type completion struct {
	id        int64
	completed bool
	notes     string
	updatedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithNow overrides the server's notion of the current time.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithPrefix mounts every route under prefix, e.g. "/api".
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		s.router = s.root.PathPrefix(prefix).Subrouter()
	}
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		habits:   make(map[int64]*habit),
		trackers: make(map[int64]json.RawMessage),
		now:      time.Now,
		root:     mux.NewRouter(),
	}
	s.router = s.root
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.injectFailures)
	api.HandleFunc("/habits/{id:[0-9]+}/completions/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/habits/{id:[0-9]+}/completions/complete", s.handleComplete).Methods(http.MethodPost)
	api.HandleFunc("/habits/{id:[0-9]+}/completions/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/habits/{id:[0-9]+}/completions/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/habits/{id:[0-9]+}/completions/weekly", s.handleWeekly).Methods(http.MethodGet)
	api.HandleFunc("/completions/bulk", s.handleBulk).Methods(http.MethodPost)
	api.HandleFunc("/trackers/{id:[0-9]+}/snapshot", s.handleTrackerSnapshot).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.ServeHTTP(w, r)
}

// AddHabit registers habit ids.
func (s *Server) AddHabit(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.habits[id]; !ok {
			s.habits[id] = &habit{completions: make(map[string]*completion)}
		}
	}
}

// SetTracker stores the snapshot document served for a tracker.
func (s *Server) SetTracker(id int64, doc json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackers[id] = doc
}

// FailNext makes the next n completion/tracker requests answer with status.
func (s *Server) FailNext(n int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, status)
	}
}

// IsCompleted reports the stored state of habitID on date.
func (s *Server) IsCompleted(habitID int64, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[habitID]
	if !ok {
		return false
	}
	c, ok := h.completions[date]
	return ok && c.completed
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		if len(s.failures) > 0 {
			status = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
