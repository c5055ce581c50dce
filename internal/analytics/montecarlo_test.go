package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/testutils"
)

func TestSimulateDegenerateZeroVolatility(t *testing.T) {
	// Constant prices estimate mu = sigma = 0: every path stays pinned to
	// the anchor and the percentile bands coincide.
	series := testutils.ConstantSeries("FLAT", seriesStart, 100, 250)

	sim, err := Simulate(context.Background(), series, SimulationConfig{
		Days: 60, Paths: 200, Samples: 10, Seed: 42,
	})
	require.NoError(t, err)

	assert.True(t, sim.Degenerate)
	assert.Equal(t, 0.0, sim.Mu)
	assert.Equal(t, 0.0, sim.Sigma)
	assert.Equal(t, 250.0, sim.Anchor)

	for day := 0; day <= 60; day++ {
		assert.Equal(t, 250.0, sim.P05[day])
		assert.Equal(t, 250.0, sim.P50[day])
		assert.Equal(t, 250.0, sim.P95[day])
	}
	for _, path := range sim.SamplePaths {
		for _, price := range path {
			assert.Equal(t, 250.0, price)
		}
	}
}

func TestSimulateReproducibleAcrossWorkerCounts(t *testing.T) {
	series := testutils.RandomWalkSeries("SPY", seriesStart, 300, 100, 0.015, 9)
	ctx := context.Background()

	base := SimulationConfig{Days: 30, Paths: 128, Samples: 5, Seed: 1234}

	one := base
	one.Workers = 1
	eight := base
	eight.Workers = 8

	simA, err := Simulate(ctx, series, one)
	require.NoError(t, err)
	simB, err := Simulate(ctx, series, eight)
	require.NoError(t, err)

	// Same seed, same parameters: bit-identical output regardless of
	// worker scheduling.
	assert.Equal(t, simA.P05, simB.P05)
	assert.Equal(t, simA.P50, simB.P50)
	assert.Equal(t, simA.P95, simB.P95)
	assert.Equal(t, simA.SamplePaths, simB.SamplePaths)
}

func TestSimulateBandOrderingAndAnchor(t *testing.T) {
	series := testutils.RandomWalkSeries("SPY", seriesStart, 300, 100, 0.02, 21)

	sim, err := Simulate(context.Background(), series, SimulationConfig{
		Days: 90, Paths: 500, Samples: 10, Seed: 7,
	})
	require.NoError(t, err)

	// Day 0 is the anchor for every reduction and sample.
	anchor := series.Last().Close
	assert.Equal(t, anchor, sim.P05[0])
	assert.Equal(t, anchor, sim.P50[0])
	assert.Equal(t, anchor, sim.P95[0])

	for day := 0; day <= 90; day++ {
		assert.LessOrEqual(t, sim.P05[day], sim.P50[day], "p05 <= p50 at %d", day)
		assert.LessOrEqual(t, sim.P50[day], sim.P95[day], "p50 <= p95 at %d", day)
	}

	require.Len(t, sim.SamplePaths, 10)
	for _, path := range sim.SamplePaths {
		require.Len(t, path, 91)
		assert.Equal(t, anchor, path[0])
		for _, price := range path {
			assert.Greater(t, price, 0.0)
		}
	}
}

func TestSimulateSampleCap(t *testing.T) {
	series := testutils.RandomWalkSeries("SPY", seriesStart, 100, 100, 0.01, 2)

	sim, err := Simulate(context.Background(), series, SimulationConfig{
		Days: 5, Paths: 50, Samples: 100, Seed: 1,
	})
	require.NoError(t, err)
	// Samples are capped by the path count and the display limit.
	assert.Len(t, sim.SamplePaths, maxSamplePaths)
}

func TestSimulateInsufficientHistory(t *testing.T) {
	series := testutils.SeriesFromCloses("X", seriesStart, []float64{100, 101})

	_, err := Simulate(context.Background(), series, SimulationConfig{
		Days: 10, Paths: 10, Samples: 2, Seed: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientData))
}

func TestSimulateCancelled(t *testing.T) {
	series := testutils.RandomWalkSeries("SPY", seriesStart, 300, 100, 0.015, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Simulate(ctx, series, SimulationConfig{
		Days: 500, Paths: 5000, Samples: 10, Seed: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTimeout))
}

func TestSimulateInvalidConfig(t *testing.T) {
	series := testutils.RandomWalkSeries("SPY", seriesStart, 100, 100, 0.01, 3)

	_, err := Simulate(context.Background(), series, SimulationConfig{Days: 0, Paths: 10})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRange))

	_, err = Simulate(context.Background(), series, SimulationConfig{Days: 10, Paths: 0})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRange))
}
