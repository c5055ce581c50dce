package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
	"twoziq/internal/testutils"
)

func TestComputeValuationWeightedPE(t *testing.T) {
	quotes := []market.Quote{
		{Ticker: "AAPL", MarketCap: 3000e9, PE: 30},
		{Ticker: "MSFT", MarketCap: 2800e9, PE: 35},
		{Ticker: "NVDA", MarketCap: 1200e9, PE: 60},
	}

	snapshot, err := ComputeValuation(quotes)
	require.NoError(t, err)

	// weighted_pe * total_implied_earnings == total_market_cap.
	assert.InDelta(t, snapshot.TotalMarketCap,
		snapshot.WeightedPE*snapshot.TotalImpliedEarnings, snapshot.TotalMarketCap*1e-12)

	wantEarnings := 3000e9/30 + 2800e9/35 + 1200e9/60
	assert.InDelta(t, wantEarnings, snapshot.TotalImpliedEarnings, 1)
	assert.InDelta(t, 7000e9/wantEarnings, snapshot.WeightedPE, 1e-9)
	require.Len(t, snapshot.Constituents, 3)
}

func TestComputeValuationExcludesInvalidConstituents(t *testing.T) {
	quotes := []market.Quote{
		{Ticker: "AAPL", MarketCap: 3000e9, PE: 30},
		{Ticker: "LOSS", MarketCap: 500e9, PE: -12},
		{Ticker: "GHOST", MarketCap: 0, PE: 20},
	}

	snapshot, err := ComputeValuation(quotes)
	require.NoError(t, err)

	// Only the valid constituent carries weight.
	assert.InDelta(t, 30, snapshot.WeightedPE, 1e-12)
	assert.Equal(t, 3000e9, snapshot.TotalMarketCap)

	require.Len(t, snapshot.Constituents, 3)
	assert.False(t, snapshot.Constituents[0].Excluded)
	assert.True(t, snapshot.Constituents[1].Excluded)
	assert.Equal(t, "non-positive P/E", snapshot.Constituents[1].Reason)
	assert.True(t, snapshot.Constituents[2].Excluded)
	assert.Equal(t, "missing market cap", snapshot.Constituents[2].Reason)
}

func TestComputeValuationNoValidConstituents(t *testing.T) {
	_, err := ComputeValuation([]market.Quote{{Ticker: "LOSS", MarketCap: 1e9, PE: 0}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientData))
}

func TestComputePEHistoryRebasedToCurrent(t *testing.T) {
	start := seriesStart
	provider := testutils.NewFakeProvider().
		AddSeries(testutils.RandomWalkSeries("AAPL", start, 120, 180, 0.012, 5)).
		AddSeries(testutils.RandomWalkSeries("MSFT", start, 120, 400, 0.010, 6)).
		AddQuote(market.Quote{Ticker: "AAPL", MarketCap: 3000e9, PE: 30}).
		AddQuote(market.Quote{Ticker: "MSFT", MarketCap: 2800e9, PE: 35})

	history, err := ComputePEHistory(context.Background(), provider,
		[]string{"AAPL", "MSFT"}, start, "1y")
	require.NoError(t, err)

	require.Equal(t, 120, len(history.Dates))
	require.Equal(t, len(history.Dates), len(history.Values))
	assert.Equal(t, "1y", history.Period)

	// The series is rebased so the latest value equals the current weighted
	// P/E of the basket.
	snapshot, err := ComputeValuation([]market.Quote{
		{Ticker: "AAPL", MarketCap: 3000e9, PE: 30},
		{Ticker: "MSFT", MarketCap: 2800e9, PE: 35},
	})
	require.NoError(t, err)
	assert.InDelta(t, snapshot.WeightedPE, history.Values[len(history.Values)-1], 1e-9)

	for _, v := range history.Values {
		assert.Greater(t, v, 0.0)
	}
}

func TestComputePEHistoryExcludedConstituentCarriesNoWeight(t *testing.T) {
	// One member has a positive market cap but an invalid P/E: it is excluded
	// from the snapshot and must not contribute weight either, or the weights
	// sum past 1 and the rebase drifts off the current weighted P/E.
	start := seriesStart
	provider := testutils.NewFakeProvider().
		AddSeries(testutils.ConstantSeries("GOOD", start, 60, 100)).
		AddSeries(testutils.ConstantSeries("LOSS", start, 60, 50)).
		AddQuote(market.Quote{Ticker: "GOOD", MarketCap: 1000, PE: 20}).
		AddQuote(market.Quote{Ticker: "LOSS", MarketCap: 1000, PE: -1})

	history, err := ComputePEHistory(context.Background(), provider,
		[]string{"GOOD", "LOSS"}, start, "1y")
	require.NoError(t, err)

	require.NotEmpty(t, history.Values)
	for _, v := range history.Values {
		assert.InDelta(t, 20, v, 1e-12)
	}
}

func TestComputePEHistorySkipsFailedConstituents(t *testing.T) {
	start := seriesStart
	provider := testutils.NewFakeProvider().
		AddSeries(testutils.ConstantSeries("AAPL", start, 60, 180)).
		AddQuote(market.Quote{Ticker: "AAPL", MarketCap: 3000e9, PE: 30}).
		// Quote but no history: contributes nothing.
		AddQuote(market.Quote{Ticker: "MSFT", MarketCap: 2800e9, PE: 35})

	history, err := ComputePEHistory(context.Background(), provider,
		[]string{"AAPL", "MSFT", "GHOST"}, start, "1y")
	require.NoError(t, err)

	// Constant prices on a one-name basket give a flat line at its P/E.
	for _, v := range history.Values {
		assert.InDelta(t, 30, v, 1e-9)
	}
}

func TestComputePEHistoryAllUnavailable(t *testing.T) {
	provider := testutils.NewFakeProvider()
	_, err := ComputePEHistory(context.Background(), provider,
		[]string{"AAPL"}, seriesStart, "1y")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMarketDataUnavailable))
}

func TestIntersectDates(t *testing.T) {
	a := testutils.SeriesFromCloses("A", testutils.Day("2024-01-02"), []float64{1, 2, 3, 4, 5})
	b := testutils.SeriesFromCloses("B", testutils.Day("2024-01-03"), []float64{1, 2, 3})

	dates := intersectDates([]basketSeries{
		{quote: market.Quote{Ticker: "A"}, series: a},
		{quote: market.Quote{Ticker: "B"}, series: b},
	})
	require.Len(t, dates, 3)
	assert.Equal(t, testutils.Day("2024-01-03"), dates[0])
	assert.True(t, dates[len(dates)-1].Before(time.Now()))
}
