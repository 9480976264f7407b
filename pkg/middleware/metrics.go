package middleware

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weft-dev/weft/pkg/reactive"
)

// MetricsConfig configures the Prometheus middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "weft").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run durations.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "weft",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus collectors for the reactive engine.
type metrics struct {
	flushesTotal  *prometheus.CounterVec
	flushDuration *prometheus.HistogramVec
	flushErrors   *prometheus.CounterVec

	effectRunsTotal *prometheus.CounterVec
	effectDuration  *prometheus.HistogramVec
	effectErrors    *prometheus.CounterVec
	silentStops     *prometheus.CounterVec
}

// Collectors for the default registry are created once; registering the
// same names twice panics.
var (
	globalMetrics     *metrics
	globalMetricsOnce sync.Once
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		flushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of flush passes",
			ConstLabels: config.ConstLabels,
		}, []string{"scope"}),

		flushDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"scope"}),

		flushErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_errors_total",
			Help:        "Total number of flushes that failed to reach a fixed point",
			ConstLabels: config.ConstLabels,
		}, []string{"scope"}),

		effectRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect executions",
			ConstLabels: config.ConstLabels,
		}, []string{"scope", "effect"}),

		effectDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect execution duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"scope", "effect"}),

		effectErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_errors_total",
			Help:        "Total number of effect executions that returned an error",
			ConstLabels: config.ConstLabels,
		}, []string{"scope", "effect"}),

		silentStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "silent_stops_total",
			Help:        "Total number of effect executions that stopped silently",
			ConstLabels: config.ConstLabels,
		}, []string{"scope", "effect"}),
	}
}

func metricsFor(config MetricsConfig) *metrics {
	if config.Registry == prometheus.DefaultRegisterer {
		globalMetricsOnce.Do(func() {
			globalMetrics = initMetrics(config)
		})
		return globalMetrics
	}
	return initMetrics(config)
}

// Prometheus creates middleware that records metrics for every flush
// pass and effect run in a scope.
//
// Metrics collected:
//   - weft_flushes_total, weft_flush_duration_seconds, weft_flush_errors_total
//   - weft_effect_runs_total, weft_effect_duration_seconds
//   - weft_effect_errors_total, weft_silent_stops_total
func Prometheus(opts ...MetricsOption) reactive.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := metricsFor(config)

	return func(next reactive.RunFunc) reactive.RunFunc {
		return func(info reactive.RunInfo) error {
			start := time.Now()
			err := next(info)
			elapsed := time.Since(start).Seconds()

			switch info.Kind {
			case reactive.RunFlush:
				m.flushesTotal.WithLabelValues(info.Scope).Inc()
				m.flushDuration.WithLabelValues(info.Scope).Observe(elapsed)
				if err != nil {
					m.flushErrors.WithLabelValues(info.Scope).Inc()
				}
			case reactive.RunEffect:
				m.effectRunsTotal.WithLabelValues(info.Scope, info.Label).Inc()
				m.effectDuration.WithLabelValues(info.Scope, info.Label).Observe(elapsed)
				switch {
				case err == nil:
				case errors.Is(err, reactive.ErrSilentStop):
					m.silentStops.WithLabelValues(info.Scope, info.Label).Inc()
				default:
					m.effectErrors.WithLabelValues(info.Scope, info.Label).Inc()
				}
			}
			return err
		}
	}
}
