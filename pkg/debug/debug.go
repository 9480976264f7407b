// Package debug exposes an HTTP surface for inspecting a running
// reactive process: liveness, Prometheus metrics, and per-scope
// statistics. Mount it on an internal-only listener.
package debug

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weft-dev/weft/pkg/reactive"
)

type config struct {
	gatherer prometheus.Gatherer
	scopes   func() []reactive.Stats
	logger   *slog.Logger
}

// Option configures the debug handler.
type Option func(*config)

// WithGatherer sets the Prometheus gatherer served at /metrics.
// Defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *config) {
		c.gatherer = g
	}
}

// WithScopes sets the snapshot function backing /scopes. Without it the
// endpoint serves an empty list.
func WithScopes(fn func() []reactive.Stats) Option {
	return func(c *config) {
		c.scopes = fn
	}
}

// WithLogger sets the logger for request logging and write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Handler builds the debug router.
//
// Routes:
//
//	GET /healthz  liveness probe
//	GET /metrics  Prometheus exposition
//	GET /scopes   JSON array of scope statistics
func Handler(opts ...Option) http.Handler {
	c := &config{
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/metrics", promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.Get("/scopes", func(w http.ResponseWriter, _ *http.Request) {
		stats := []reactive.Stats{}
		if c.scopes != nil {
			stats = c.scopes()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			c.logger.Error("encoding scope stats", "err", err)
		}
	})

	return r
}
