package analytics

import (
	"fmt"
	"strings"
	"time"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Contribution frequencies for DCA simulation.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// DcaResult replays a periodic-contribution strategy against a price
// history. InvestedCurve is a non-decreasing step function of cumulative
// contributions; ValuationCurve[t] = shares held x price[t].
type DcaResult struct {
	Ticker         string      `json:"ticker"`
	Dates          []time.Time `json:"dates"`
	InvestedCurve  []float64   `json:"invested_curve"`
	ValuationCurve []float64   `json:"valuation_curve"`

	TotalInvested float64 `json:"total_invested"`
	FinalValue    float64 `json:"final_value"`
	Shares        float64 `json:"shares"`
	Contributions int     `json:"contributions"`
	ReturnPct     float64 `json:"return_pct"`
}

// SimulateDCA walks the price series from start to end, buying amount worth
// of shares on the first trading day at or after each period boundary
// (weeks start Monday, months on the 1st). Invested and valuation curves are
// recorded at every trading date in the range.
func SimulateDCA(series *market.PriceSeries, start, end time.Time, amount float64, frequency string) (*DcaResult, error) {
	if err := validateDCAParams(start, end, amount, frequency); err != nil {
		return nil, err
	}
	advance, _ := boundaryAdvancer(frequency)

	window := series.Slice(start, end)
	if window.Len() == 0 {
		return nil, apperrors.NewInvalidRange("no trading days in the requested range")
	}

	result := &DcaResult{
		Ticker:         series.Ticker,
		Dates:          make([]time.Time, 0, window.Len()),
		InvestedCurve:  make([]float64, 0, window.Len()),
		ValuationCurve: make([]float64, 0, window.Len()),
	}

	var invested, shares float64
	boundary := start
	for _, p := range window.Points {
		if !p.Date.Before(boundary) {
			shares += amount / p.Close
			invested += amount
			result.Contributions++
			boundary = advance(p.Date)
		}
		result.Dates = append(result.Dates, p.Date)
		result.InvestedCurve = append(result.InvestedCurve, invested)
		result.ValuationCurve = append(result.ValuationCurve, shares*p.Close)
	}

	result.TotalInvested = invested
	result.Shares = shares
	result.FinalValue = result.ValuationCurve[len(result.ValuationCurve)-1]
	result.ReturnPct = (result.FinalValue/result.TotalInvested - 1) * 100
	return result, nil
}

// validateDCAParams checks the pure inputs of a DCA run. Callers that fetch
// price data validate first, so a bad range never masquerades as a missing
// ticker.
func validateDCAParams(start, end time.Time, amount float64, frequency string) error {
	if !start.Before(end) {
		return apperrors.NewInvalidRange(fmt.Sprintf("start %s must be before end %s",
			start.Format(market.DateLayout), end.Format(market.DateLayout)))
	}
	if amount <= 0 {
		return apperrors.NewInvalidRange(fmt.Sprintf("contribution amount must be positive, got %.2f", amount))
	}
	if _, err := boundaryAdvancer(frequency); err != nil {
		return err
	}
	return nil
}

// boundaryAdvancer returns a function producing the next period boundary
// strictly after a contribution date.
func boundaryAdvancer(frequency string) (func(time.Time) time.Time, error) {
	switch strings.ToLower(frequency) {
	case FreqDaily:
		return func(t time.Time) time.Time {
			return t.AddDate(0, 0, 1)
		}, nil
	case FreqWeekly:
		return nextMonday, nil
	case FreqMonthly:
		return func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
		}, nil
	default:
		return nil, apperrors.NewUnknownFrequency(frequency)
	}
}

// nextMonday returns the Monday strictly after t.
func nextMonday(t time.Time) time.Time {
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return t.AddDate(0, 0, days)
}
