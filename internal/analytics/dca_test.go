package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/testutils"
)

func TestSimulateDCADailyEndToEnd(t *testing.T) {
	// 5 trading days at [100, 102, 101, 105, 103], 100 contributed daily.
	closes := []float64{100, 102, 101, 105, 103}
	series := testutils.SeriesFromCloses("VOO", seriesStart, closes)
	start := series.First().Date
	end := series.Last().Date

	result, err := SimulateDCA(series, start, end.AddDate(0, 0, 1), 100, FreqDaily)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Contributions)
	assert.Equal(t, 500.0, result.TotalInvested)

	wantShares := 0.0
	for _, c := range closes {
		wantShares += 100 / c
	}
	assert.InDelta(t, wantShares, result.Shares, 1e-12)
	assert.InDelta(t, wantShares*103, result.FinalValue, 1e-9)

	// return_pct is consistent with the curves.
	assert.InDelta(t, (result.FinalValue/500-1)*100, result.ReturnPct, 1e-9)
	assert.InDelta(t, result.ReturnPct/100, result.ValuationCurve[4]/result.TotalInvested-1, 1e-12)
}

func TestSimulateDCAInvestedCurveMonotone(t *testing.T) {
	series := testutils.RandomWalkSeries("VTI", seriesStart, 260, 200, 0.01, 13)
	start := series.First().Date
	end := series.Last().Date

	for _, freq := range []string{FreqDaily, FreqWeekly, FreqMonthly} {
		t.Run(freq, func(t *testing.T) {
			result, err := SimulateDCA(series, start, end, 50, freq)
			require.NoError(t, err)

			require.Equal(t, series.Len(), len(result.Dates))
			for i := 1; i < len(result.InvestedCurve); i++ {
				assert.GreaterOrEqual(t, result.InvestedCurve[i], result.InvestedCurve[i-1],
					"invested curve must be non-decreasing at %d", i)
			}
			assert.Equal(t, float64(result.Contributions)*50, result.TotalInvested)
		})
	}
}

func TestSimulateDCAMonthlySchedule(t *testing.T) {
	// Jan..Apr 2024 trading days; monthly buys land on the first trading
	// day of each month.
	series := testutils.SeriesFromCloses("SPY", testutils.Day("2024-01-02"),
		constantCloses(85, 100))
	start := testutils.Day("2024-01-01")
	end := testutils.Day("2024-04-30")

	result, err := SimulateDCA(series, start, end, 300, FreqMonthly)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Contributions)
	assert.Equal(t, 1200.0, result.TotalInvested)
}

func TestSimulateDCAWeeklySchedule(t *testing.T) {
	// Two full weeks of trading days: one buy at the start boundary, one on
	// each following Monday.
	series := testutils.SeriesFromCloses("SPY", testutils.Day("2024-01-02"),
		constantCloses(14, 50))
	start := testutils.Day("2024-01-02") // Tuesday
	end := testutils.Day("2024-01-19")   // Friday two weeks on

	result, err := SimulateDCA(series, start, end, 100, FreqWeekly)
	require.NoError(t, err)

	// Buys: Jan 2 (start), Mon Jan 8, Mon Jan 15.
	assert.Equal(t, 3, result.Contributions)
}

func TestSimulateDCAValidation(t *testing.T) {
	series := testutils.SeriesFromCloses("SPY", seriesStart, []float64{100, 101, 102})
	start := series.First().Date
	end := series.Last().Date

	_, err := SimulateDCA(series, end, start, 100, FreqDaily)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRange), "start >= end")

	_, err = SimulateDCA(series, start, end, 0, FreqDaily)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRange), "non-positive amount")

	_, err = SimulateDCA(series, start, end, 100, "hourly")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnknownFrequency))

	// A range outside the available history has zero trading days.
	_, err = SimulateDCA(series, testutils.Day("2030-01-01"), testutils.Day("2030-06-01"), 100, FreqDaily)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRange))
}

func TestNextMonday(t *testing.T) {
	assert.Equal(t, testutils.Day("2024-01-08"), nextMonday(testutils.Day("2024-01-02"))) // Tuesday
	assert.Equal(t, testutils.Day("2024-01-08"), nextMonday(testutils.Day("2024-01-05"))) // Friday
	// Monday advances a full week, not zero days.
	assert.Equal(t, testutils.Day("2024-01-15"), nextMonday(testutils.Day("2024-01-08")))
}

func constantCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}
