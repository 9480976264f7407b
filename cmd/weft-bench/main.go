// weft-bench measures flush throughput and propagation latency of the
// reactive engine under synthetic dependency graphs.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/weft-dev/weft/pkg/reactive"
)

type benchConfig struct {
	iterations int
	warmup     int
	width      int
	depth      int
}

type benchResult struct {
	name       string
	iterations int
	effectRuns uint64
	checksum   uint64
	metrics    *tachymeter.Metrics
}

func main() {
	cfg := benchConfig{}

	root := &cobra.Command{
		Use:           "weft-bench",
		Short:         "Benchmark the weft reactive engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&cfg.iterations, "iterations", 10000, "timed write+flush cycles")
	root.PersistentFlags().IntVar(&cfg.warmup, "warmup", 100, "untimed cycles before measuring")

	propagate := &cobra.Command{
		Use:   "propagate",
		Short: "Push writes through parallel chains of computed values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := runPropagate(cfg)
			if err != nil {
				return err
			}
			report(result)
			return nil
		},
	}
	propagate.Flags().IntVar(&cfg.width, "width", 10, "parallel chains")
	propagate.Flags().IntVar(&cfg.depth, "depth", 10, "computed values per chain")

	diamond := &cobra.Command{
		Use:   "diamond",
		Short: "Exercise diamond-shaped graphs where two branches rejoin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := runDiamond(cfg)
			if err != nil {
				return err
			}
			report(result)
			return nil
		},
	}

	root.AddCommand(propagate, diamond)

	if err := root.Execute(); err != nil {
		slog.Error("benchmark failed", "err", err)
		os.Exit(1)
	}
}

// runPropagate builds width chains of depth calcs each, all fed by one
// source value, with one effect per chain observing the chain tail.
func runPropagate(cfg benchConfig) (*benchResult, error) {
	scope := reactive.NewScope(reactive.WithName("bench-propagate"))
	defer scope.Destroy()

	src := reactive.NewValue(0)
	digest := xxhash.New()
	var effectRuns uint64

	for chain := 0; chain < cfg.width; chain++ {
		prev := func() (int, error) { return src.Get() }
		for level := 0; level < cfg.depth; level++ {
			inner := prev
			calc := reactive.NewCalc(func() (int, error) {
				v, err := inner()
				if err != nil {
					return 0, err
				}
				return v + 1, nil
			}).Named(fmt.Sprintf("chain%d-level%d", chain, level))
			prev = calc.Get
		}
		tail := prev
		scope.Effect(func(context.Context) error {
			v, err := tail()
			if err != nil {
				return err
			}
			effectRuns++
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			_, _ = digest.Write(buf[:])
			return nil
		}, reactive.WithLabel(fmt.Sprintf("observe-chain%d", chain)))
	}

	meter, err := measure(cfg, scope, src)
	if err != nil {
		return nil, err
	}
	return &benchResult{
		name:       fmt.Sprintf("propagate %dx%d", cfg.width, cfg.depth),
		iterations: cfg.iterations,
		effectRuns: effectRuns,
		checksum:   digest.Sum64(),
		metrics:    meter,
	}, nil
}

// runDiamond builds src -> {left, right} -> join -> effect. Each cycle
// must run the effect exactly once despite the two invalidation paths.
func runDiamond(cfg benchConfig) (*benchResult, error) {
	scope := reactive.NewScope(reactive.WithName("bench-diamond"))
	defer scope.Destroy()

	src := reactive.NewValue(0)
	left := reactive.NewCalc(func() (int, error) {
		v, err := src.Get()
		return v * 2, err
	}).Named("left")
	right := reactive.NewCalc(func() (int, error) {
		v, err := src.Get()
		return v * 3, err
	}).Named("right")
	join := reactive.NewCalc(func() (int, error) {
		l, err := left.Get()
		if err != nil {
			return 0, err
		}
		r, err := right.Get()
		if err != nil {
			return 0, err
		}
		return l + r, nil
	}).Named("join")

	digest := xxhash.New()
	var effectRuns uint64
	scope.Effect(func(context.Context) error {
		v, err := join.Get()
		if err != nil {
			return err
		}
		effectRuns++
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = digest.Write(buf[:])
		return nil
	}, reactive.WithLabel("observe-join"))

	meter, err := measure(cfg, scope, src)
	if err != nil {
		return nil, err
	}
	return &benchResult{
		name:       "diamond",
		iterations: cfg.iterations,
		effectRuns: effectRuns,
		checksum:   digest.Sum64(),
		metrics:    meter,
	}, nil
}

// measure drives write+flush cycles through the graph and returns
// latency statistics for the timed portion.
func measure(cfg benchConfig, scope *reactive.Scope, src *reactive.Value[int]) (*tachymeter.Metrics, error) {
	for i := 0; i < cfg.warmup; i++ {
		src.Set(-1 - i)
		if err := scope.Flush(); err != nil {
			return nil, fmt.Errorf("warmup flush: %w", err)
		}
	}

	meter := tachymeter.New(&tachymeter.Config{Size: cfg.iterations})
	for i := 0; i < cfg.iterations; i++ {
		start := time.Now()
		src.Set(i + 1)
		if err := scope.Flush(); err != nil {
			return nil, fmt.Errorf("flush %d: %w", i, err)
		}
		meter.AddTime(time.Since(start))
	}
	return meter.Calc(), nil
}

func report(r *benchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"benchmark", "iterations", "avg", "min", "p75", "p99", "max"})
	t.AppendRow(table.Row{
		r.name,
		humanize.Comma(int64(r.iterations)),
		r.metrics.Time.Avg,
		r.metrics.Time.Min,
		r.metrics.Time.P75,
		r.metrics.Time.P99,
		r.metrics.Time.Max,
	})
	t.Render()

	fmt.Printf("effect runs: %s\n", humanize.Comma(int64(r.effectRuns)))
	fmt.Printf("checksum: %016x\n", r.checksum)
}
