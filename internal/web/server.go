package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/digest"
	"github.com/perbu/artifacts/internal/engine"
)

// Runners is the live view of the scheduler. *engine.Scheduler implements it.
type Runners interface {
	Statuses() []engine.Status
	Stop(name string) error
}

// Option configures a Server
type Option func(*Server)

// WithRunners shows live runner status and enables the stop endpoint
func WithRunners(r Runners) Option {
	return func(s *Server) {
		s.runners = r
	}
}

// WithPersonas names the persona each character plays
func WithPersonas(lookup func(character string) (string, bool)) Option {
	return func(s *Server) {
		s.persona = lookup
	}
}

// WithGatherer serves the gatherer's metrics on /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithAdminToken sets the bearer token of the admin endpoints
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server is the HTTP server for the status pages
type Server struct {
	db         *db.DB
	composer   *digest.Composer
	runners    Runners
	persona    func(string) (string, bool)
	gatherer   prometheus.Gatherer
	adminToken string
	logger     *slog.Logger
	now        func() time.Time

	templates *Templates
	mux       *http.ServeMux
	addr      string
}

// NewServer creates a new web server listening on addr, e.g. "localhost:8080"
func NewServer(database *db.DB, addr string, opts ...Option) (*Server, error) {
	templates, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		db:        database,
		composer:  digest.NewComposer(database, ""),
		logger:    slog.Default(),
		now:       time.Now,
		templates: templates,
		mux:       http.NewServeMux(),
		addr:      addr,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /characters/{name}", s.handleCharacter)
	s.mux.HandleFunc("POST /admin/characters/{name}/stop", s.requireAdmin(s.handleStop))
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return logRequests(s.logger, s.mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down web server: %w", err)
		}
		return nil
	}
}

// Address returns the server address
func (s *Server) Address() string {
	return "http://" + s.addr
}
