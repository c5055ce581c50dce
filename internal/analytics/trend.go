package analytics

import (
	"math"
	"time"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Band zone classifications derived from the clamped band position.
const (
	ZoneCheap     = "cheap"
	ZoneFair      = "fair"
	ZoneExpensive = "expensive"
)

// TrendFit is a log-linear trend channel fitted over a price series.
// Upper/lower are symmetric ±2σ bands in log space, so
// upper[t] >= middle[t] >= lower[t] holds for every t.
type TrendFit struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	ResidualStd float64 `json:"residual_std"`

	Dates  []time.Time `json:"dates"`
	Prices []float64   `json:"prices"`
	Middle []float64   `json:"middle"`
	Upper  []float64   `json:"upper"`
	Lower  []float64   `json:"lower"`

	// BandPosition locates the latest close inside the channel as a
	// percentage: 0 at the lower band, 100 at the upper. Stored unclamped;
	// Zone uses the clamped value for display classification only.
	BandPosition float64 `json:"band_position"`
	Zone         string  `json:"zone"`

	// Degenerate flags a zero residual std (constant or perfectly
	// exponential series): the bands collapse onto the trend line.
	Degenerate bool `json:"degenerate,omitempty"`
}

// FitTrend runs an ordinary least squares fit of ln(price) against the
// sequential day index and derives the ±2σ channel. The residual standard
// deviation uses the sample convention (Bessel), consistent with the
// distribution analyzer.
func FitTrend(series *market.PriceSeries) (*TrendFit, error) {
	n := series.Len()
	if n < 2 {
		return nil, apperrors.NewInsufficientData("trend regression", n, 2)
	}

	logPrices := make([]float64, n)
	for i, p := range series.Points {
		logPrices[i] = math.Log(p.Close)
	}

	// OLS of y = ln(price) on x = 0..n-1.
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range logPrices {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	residuals := make([]float64, n)
	for i, y := range logPrices {
		residuals[i] = y - (slope*float64(i) + intercept)
	}
	residualStd := sampleStd(residuals)

	fit := &TrendFit{
		Slope:       slope,
		Intercept:   intercept,
		ResidualStd: residualStd,
		Dates:       series.Dates(),
		Prices:      series.Closes(),
		Middle:      make([]float64, n),
		Upper:       make([]float64, n),
		Lower:       make([]float64, n),
		Degenerate:  residualStd == 0,
	}

	spread := math.Exp(2 * residualStd)
	for i := 0; i < n; i++ {
		mid := math.Exp(slope*float64(i) + intercept)
		fit.Middle[i] = mid
		fit.Upper[i] = mid * spread
		fit.Lower[i] = mid / spread
	}

	fit.BandPosition = bandPosition(series.Last().Close, fit.Upper[n-1], fit.Lower[n-1])
	fit.Zone = classifyZone(fit.BandPosition)
	return fit, nil
}

// bandPosition returns the position of price within [lower, upper] in log
// space as a percentage. A collapsed channel reads as the midpoint.
func bandPosition(price, upper, lower float64) float64 {
	span := math.Log(upper) - math.Log(lower)
	if span == 0 {
		return 50
	}
	return (math.Log(price) - math.Log(lower)) / span * 100
}

// classifyZone clamps the band position to [0,100] and buckets it for
// display. The stored BandPosition itself is never clamped.
func classifyZone(position float64) string {
	clamped := math.Max(0, math.Min(100, position))
	switch {
	case clamped < 33:
		return ZoneCheap
	case clamped > 67:
		return ZoneExpensive
	default:
		return ZoneFair
	}
}
