// Package server exposes the tracking endpoints: the open pixel, web-view
// events, agent and MCP queries, robots.txt and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/track"
	"github.com/yaoqinxue-cmd/BriStack/internal/util"
)

// Recorder is the subset of track.Recorder the handlers use
type Recorder interface {
	Record(ctx context.Context, in track.EventInput) (model.ClassificationResult, error)
	RecordAgentQuery(ctx context.Context, in track.EventInput) (model.ClassificationResult, error)
	RecordMCPQuery(ctx context.Context, in track.EventInput) (model.ClassificationResult, error)
}

// Server is the tracking HTTP server
type Server struct {
	cfg      model.ServerConfig
	recorder Recorder
	robots   *util.RobotsPolicy
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   *chi.Mux
}

// Option configures a Server
type Option func(*Server)

// WithRobotsPolicy serves the policy at /robots.txt
func WithRobotsPolicy(p *util.RobotsPolicy) Option {
	return func(s *Server) { s.robots = p }
}

// WithGatherer serves the gatherer's metrics at /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server and registers its routes
func New(cfg model.ServerConfig, recorder Recorder, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		recorder: recorder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	s.routes(r)
	s.router = r

	return s
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/robots.txt", s.handleRobots)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/t", func(r chi.Router) {
		r.Get("/open.gif", s.handleOpen)
		r.Post("/event", s.handleEvent)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/agent/query", s.handleAgentQuery)
		r.Post("/mcp/query", s.handleMCPQuery)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  seconds(s.cfg.ReadTimeout),
		WriteTimeout: seconds(s.cfg.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("tracking server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	timeout := seconds(s.cfg.ShutdownTimeout)
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("tracking server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
