// Package server exposes the planning pipeline over HTTP.
//
// Routes:
//
//	POST /v1/plans                plan a problem spec
//	POST /v1/graph-plans          plan a property graph
//	POST /v1/runs                 plan and orchestrate a spec or graph
//	GET  /v1/performance          per-back-end performance records
//	POST /v1/performance/reset    zero the performance records
//	GET  /healthz                 liveness and back-end availability
//	GET  /metrics                 Prometheus metrics
//
// Errors are returned as {"error": CODE, "message": text} with the status
// from errors.HTTPStatus.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/pipeline"
)

// Defaults.
const (
	DefaultAddr    = ":8080"
	MaxBodyBytes   = 1 << 20
	RequestTimeout = 60 * time.Second
)

// HistoryResetter clears persisted attempt history on a performance reset.
type HistoryResetter interface {
	Reset(ctx context.Context) (int64, error)
}

// Options configures a Server.
type Options struct {
	Addr     string
	Runner   *pipeline.Runner
	History  HistoryResetter     // nil keeps no persisted history
	Gatherer prometheus.Gatherer // nil uses the default registry
	Logger   *log.Logger
}

// Server is the HTTP API.
type Server struct {
	runner  *pipeline.Runner
	orch    *orchestrator.Orchestrator
	history HistoryResetter
	logger  *log.Logger
	router  chi.Router
	http    *http.Server
}

// New creates a server. The runner must have an orchestrator.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	addr := opts.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		runner:  opts.Runner,
		orch:    opts.Runner.Orchestrator,
		history: opts.History,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))
		r.Post("/plans", s.handlePlan(pipeline.SourceSpec))
		r.Post("/graph-plans", s.handlePlan(pipeline.SourceGraph))
		r.Post("/runs", s.handleRun)
		r.Get("/performance", s.handlePerformance)
		r.Post("/performance/reset", s.handleReset)
	})
	s.router = r

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.http.Addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
