// Package server exposes the phaseflow pipeline over HTTP.
//
// Routes:
//
//	POST /api/flows                        raw flow JSON (or service envelope) -> session
//	GET  /api/flows/{id}                   session graph with expand state applied
//	POST /api/flows/{id}/toggle            {"node_id": "..."} -> updated graph
//	GET  /api/flows/{id}/render.{format}   rendered artifact (json, dot, svg, png, pdf)
//	POST /api/summary                      {"code": "..."} -> summarize, normalize, session
//	GET  /healthz
//	GET  /metrics
//
// Validation failures are answered with 422 and a body of the form
// {"code": "INVALID_PHASE", "message": "...", "index": 0}. Failures talking
// to the summarization service are 502.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/phaseflow/pkg/pipeline"
	"github.com/matzehuels/phaseflow/pkg/session"
)

// Summarizer turns source code into a raw service response.
type Summarizer interface {
	Summarize(ctx context.Context, code string) (string, error)
}

// Deps holds the server's collaborators.
type Deps struct {
	Runner   *pipeline.Runner
	Sessions session.Store
	// Summarizer may be nil, in which case /api/summary answers 501.
	Summarizer Summarizer
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	Logger  *log.Logger

	Pipeline     pipeline.Options
	SessionTTL   time.Duration
	MaxBodyBytes int64
}

// Server serves the HTTP API.
type Server struct {
	deps Deps

	// locks serializes read-modify-write cycles on one session.
	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a server. Zero values in deps get defaults.
func New(deps Deps) *Server {
	if deps.Runner == nil {
		deps.Runner = pipeline.NewRunner(nil, nil, deps.Logger)
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = session.DefaultTTL
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	return &Server{deps: deps, locks: make(map[string]*sessionLock)}
}

// lockSession blocks until the caller holds the lock for id and returns the
// matching unlock. Entries are dropped once no request holds or waits on them.
func (s *Server) lockSession(id string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/flows", s.handleCreateFlow)
		r.Get("/flows/{id}", s.handleGetFlow)
		r.Post("/flows/{id}/toggle", s.handleToggle)
		r.Get("/flows/{id}/render.{format}", s.handleRender)
		r.Post("/summary", s.handleSummary)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.deps.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// CleanupSessions calls Store.Cleanup every interval until ctx is done.
func (s *Server) CleanupSessions(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.deps.Sessions.Cleanup(ctx); err != nil {
				s.deps.Logger.Warn("session cleanup failed", "err", err)
			}
		}
	}
}
