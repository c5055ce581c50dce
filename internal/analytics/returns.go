package analytics

import (
	"math"
	"time"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Sampling steps for return computation, in trading days.
const (
	StepDaily   = 1
	StepWeekly  = 5
	StepMonthly = 21
)

// ReturnPoint is one (date, period return) observation.
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is the simple-return series derived from a price series at a
// fixed sampling step: return[t] = price[t]/price[t-k] - 1, dated at t.
// Length is always len(prices) - k.
type ReturnSeries struct {
	Ticker string
	Step   int
	Points []ReturnPoint
}

// Len returns the number of return observations.
func (r *ReturnSeries) Len() int {
	return len(r.Points)
}

// Values returns the period returns in date order.
func (r *ReturnSeries) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Return
	}
	return out
}

// Last returns the most recent period return.
func (r *ReturnSeries) Last() ReturnPoint {
	return r.Points[len(r.Points)-1]
}

// BuildReturnSeries derives simple returns from a price series at step k.
// Pure function; the input series is not modified.
func BuildReturnSeries(series *market.PriceSeries, step int) (*ReturnSeries, error) {
	if step < 1 {
		return nil, apperrors.NewInvalidRange("sampling step must be >= 1")
	}
	if series.Len() <= step {
		return nil, apperrors.NewInsufficientData("return series", series.Len(), step+1)
	}

	points := make([]ReturnPoint, 0, series.Len()-step)
	for t := step; t < series.Len(); t++ {
		points = append(points, ReturnPoint{
			Date:   series.Points[t].Date,
			Return: series.Points[t].Close/series.Points[t-step].Close - 1,
		})
	}
	return &ReturnSeries{Ticker: series.Ticker, Step: step, Points: points}, nil
}

// LogReturns derives daily log returns from a price series. Used for GBM
// drift/volatility estimation and annualization.
func LogReturns(series *market.PriceSeries) ([]float64, error) {
	if series.Len() < 2 {
		return nil, apperrors.NewInsufficientData("log returns", series.Len(), 2)
	}
	out := make([]float64, series.Len()-1)
	for t := 1; t < series.Len(); t++ {
		out[t-1] = math.Log(series.Points[t].Close / series.Points[t-1].Close)
	}
	return out, nil
}
