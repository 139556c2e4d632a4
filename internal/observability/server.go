// Package observability serves the pollconf admin port and owns its Prometheus metrics.
//
// The admin port carries three endpoints, all paths configurable:
//   - liveness: 200 while the process answers HTTP. Dependencies are ignored.
//   - readiness: 200 only when every registered Checker passes. Postgres is always
//     registered because tenant overrides live there; Redis is registered only when
//     configured, so a Redis-less deployment is ready on Postgres alone and keeps
//     serving environment defaults.
//   - metrics: the default Prometheus registry, which includes the resolver reload
//     and fallback counters, the Control API histograms and the pool gauges.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafaeljc/pollconf/internal/config"
)

// adminReadHeaderTimeout bounds header reads on the admin port.
const adminReadHeaderTimeout = 2 * time.Second

// Server is the admin HTTP server. It listens apart from the Control API so that
// probes and scrapes keep working while the API is saturated.
type Server struct {
	logger   *slog.Logger
	cfg      *config.ObservabilityConfig
	router   *chi.Mux
	server   *http.Server
	checkers []Checker
}

// NewServer builds the admin server. checkers are the dependencies readiness
// reports on, keyed by their Name in the probe body.
func NewServer(logger *slog.Logger, cfg *config.ObservabilityConfig, checkers ...Checker) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:   logger,
		cfg:      cfg,
		router:   chi.NewRouter(),
		checkers: checkers,
	}

	// Probe answers must never be cached by an intermediate proxy.
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.NoCache)

	s.router.Get(cfg.LivenessPath, s.liveness)
	s.router.Get(cfg.ReadinessPath, s.readiness)
	s.router.Method(http.MethodGet, cfg.MetricsPath, promhttp.Handler())

	return s
}

// Start listens on the configured port in the background.
// A listen failure is logged; it does not stop the poll service.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%s", s.cfg.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
		IdleTimeout:       s.cfg.Timeout * 3,
		ReadHeaderTimeout: adminReadHeaderTimeout,
	}

	go func() {
		s.logger.Info("starting admin server",
			slog.String("addr", addr),
			slog.Int("checkers", len(s.checkers)),
			slog.String("readiness_path", s.cfg.ReadinessPath),
			slog.String("metrics_path", s.cfg.MetricsPath),
		)

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server failed", slog.String("error", err.Error()))
		}
	}()
}

// Handler returns the admin router without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Shutdown drains the admin server. It is a no-op if Start was never called.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("stopping admin server")
	return s.server.Shutdown(ctx)
}
