package analytics

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// SimulationConfig parameterizes a Monte Carlo run. Seed is explicit so a
// fixed (seed, mu, sigma, days, paths) tuple is bit-reproducible; there is no
// ambient global generator state.
type SimulationConfig struct {
	Days    int   // forward horizon, trading days
	Paths   int   // internal simulated paths
	Samples int   // raw paths retained for display, <= 30
	Seed    int64 // root seed; path i derives its own generator from Seed+i
	Workers int   // 0 = GOMAXPROCS
}

// Simulation is the reduced result of a GBM path simulation. Index 0 of
// every per-day slice is the anchor (last observed close), so
// P05[t] <= P50[t] <= P95[t] holds at every day index.
type Simulation struct {
	Anchor float64 `json:"anchor"`
	Mu     float64 `json:"mu"`    // daily log-return drift estimate
	Sigma  float64 `json:"sigma"` // daily log-return volatility estimate
	Days   int     `json:"days"`
	Paths  int     `json:"paths"`

	P05 []float64 `json:"p05"`
	P50 []float64 `json:"p50"`
	P95 []float64 `json:"p95"`

	SamplePaths [][]float64 `json:"sample_paths"`

	// Degenerate marks a zero volatility estimate: every path is the same
	// deterministic exponential curve. Valid output, not an error.
	Degenerate bool `json:"degenerate,omitempty"`
}

const maxSamplePaths = 30

// Simulate estimates daily drift and volatility from the series' log returns
// and simulates forward price paths under geometric Brownian motion with
// dt = 1 trading day. Path generation fans out across a bounded worker pool;
// paths share no mutable state and the percentile reduction runs only after
// all paths complete.
func Simulate(ctx context.Context, series *market.PriceSeries, cfg SimulationConfig) (*Simulation, error) {
	logReturns, err := LogReturns(series)
	if err != nil {
		return nil, err
	}
	if len(logReturns) < 2 {
		return nil, apperrors.NewInsufficientData("volatility estimation", len(logReturns), 2)
	}
	if cfg.Days < 1 || cfg.Paths < 1 {
		return nil, apperrors.NewInvalidRange("simulation days and paths must be >= 1")
	}
	if cfg.Samples > cfg.Paths {
		cfg.Samples = cfg.Paths
	}
	if cfg.Samples > maxSamplePaths {
		cfg.Samples = maxSamplePaths
	}

	mu := mean(logReturns)
	sigma := sampleStd(logReturns)
	drift := mu - 0.5*sigma*sigma
	anchor := series.Last().Close

	// paths[i] is written by exactly one worker.
	paths := make([][]float64, cfg.Paths)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.Paths {
		workers = cfg.Paths
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (cfg.Paths + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > cfg.Paths {
			hi = cfg.Paths
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				// Per-path generator keyed off the root seed: output does
				// not depend on worker scheduling.
				rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
				path := make([]float64, cfg.Days+1)
				path[0] = anchor
				for t := 1; t <= cfg.Days; t++ {
					path[t] = path[t-1] * math.Exp(drift+sigma*rng.NormFloat64())
				}
				paths[i] = path
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeTimeout, "simulation cancelled")
	}

	sim := &Simulation{
		Anchor:     anchor,
		Mu:         mu,
		Sigma:      sigma,
		Days:       cfg.Days,
		Paths:      cfg.Paths,
		P05:        make([]float64, cfg.Days+1),
		P50:        make([]float64, cfg.Days+1),
		P95:        make([]float64, cfg.Days+1),
		Degenerate: sigma == 0,
	}

	day := make([]float64, cfg.Paths)
	for t := 0; t <= cfg.Days; t++ {
		for i := range paths {
			day[i] = paths[i][t]
		}
		sim.P05[t] = percentile(day, 5)
		sim.P50[t] = percentile(day, 50)
		sim.P95[t] = percentile(day, 95)
	}

	sim.SamplePaths = paths[:cfg.Samples]
	return sim, nil
}
