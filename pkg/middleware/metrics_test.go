package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-dev/weft/pkg/reactive"
)

func TestPrometheusCountsFlushesAndEffects(t *testing.T) {
	registry := prometheus.NewRegistry()
	scope := reactive.NewScope(
		reactive.WithName("metrics-test"),
		reactive.WithMiddleware(Prometheus(WithRegistry(registry))),
	)
	defer scope.Destroy()

	v := reactive.NewValue(1)
	scope.Effect(func(context.Context) error {
		_, err := v.Get()
		return err
	})

	v.Set(2)
	require.NoError(t, scope.Flush())

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				byName[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, float64(1), byName["weft_flushes_total"])
	// Initial run plus one flush re-run.
	assert.Equal(t, float64(2), byName["weft_effect_runs_total"])
	assert.Zero(t, byName["weft_effect_errors_total"])
}

func TestPrometheusClassifiesErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	scope := reactive.NewScope(
		reactive.WithName("errors-test"),
		reactive.WithMiddleware(Prometheus(WithRegistry(registry))),
	)
	defer scope.Destroy()

	scope.Effect(func(context.Context) error {
		return reactive.ErrSilentStop
	}, reactive.WithLabel("quiet"))
	scope.Effect(func(context.Context) error {
		return errors.New("boom")
	}, reactive.WithLabel("loud"))

	silent, err := testutil.GatherAndCount(registry, "weft_silent_stops_total")
	require.NoError(t, err)
	assert.Equal(t, 1, silent)

	failed, err := testutil.GatherAndCount(registry, "weft_effect_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
}

func TestPrometheusOptions(t *testing.T) {
	config := defaultMetricsConfig()
	WithNamespace("custom")(&config)
	WithSubsystem("sub")(&config)
	WithConstLabels(prometheus.Labels{"env": "test"})(&config)
	WithBuckets([]float64{0.1, 1})(&config)

	assert.Equal(t, "custom", config.Namespace)
	assert.Equal(t, "sub", config.Subsystem)
	assert.Equal(t, "test", config.ConstLabels["env"])
	assert.Len(t, config.Buckets, 2)
}
