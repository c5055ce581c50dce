// Package testutils provides deterministic price fixtures and a fake market
// provider for package tests.
package testutils

import (
	"context"
	"math"
	"math/rand"
	"time"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Day parses an ISO calendar date, panicking on bad fixtures.
func Day(s string) time.Time {
	t, err := time.Parse(market.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// TradingDays generates n consecutive weekday dates starting at start.
func TradingDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := start
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// SeriesFromCloses builds a price series over consecutive trading days.
func SeriesFromCloses(ticker string, start time.Time, closes []float64) *market.PriceSeries {
	dates := TradingDays(start, len(closes))
	points := make([]market.PricePoint, len(closes))
	for i := range closes {
		points[i] = market.PricePoint{Date: dates[i], Close: closes[i]}
	}
	series, err := market.NewPriceSeries(ticker, points)
	if err != nil {
		panic(err)
	}
	return series
}

// ConstantSeries builds an n-day series at a fixed price.
func ConstantSeries(ticker string, start time.Time, n int, price float64) *market.PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return SeriesFromCloses(ticker, start, closes)
}

// GrowthSeries builds an n-day series with constant daily growth, i.e. a
// perfectly exponential (log-linear) price path.
func GrowthSeries(ticker string, start time.Time, n int, initial, dailyGrowth float64) *market.PriceSeries {
	closes := make([]float64, n)
	price := initial
	for i := range closes {
		closes[i] = price
		price *= 1 + dailyGrowth
	}
	return SeriesFromCloses(ticker, start, closes)
}

// RandomWalkSeries builds a seeded GBM-like series for realistic inputs.
func RandomWalkSeries(ticker string, start time.Time, n int, initial, dailyVol float64, seed int64) *market.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := initial
	for i := range closes {
		closes[i] = price
		price *= math.Exp(dailyVol * rng.NormFloat64())
	}
	return SeriesFromCloses(ticker, start, closes)
}

// FakeProvider serves fixed series and quotes; unknown tickers resolve to
// UnresolvedTickerError like the real collaborator.
type FakeProvider struct {
	Series map[string]*market.PriceSeries
	Quotes map[string]*market.Quote
}

// NewFakeProvider creates an empty fake provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Series: make(map[string]*market.PriceSeries),
		Quotes: make(map[string]*market.Quote),
	}
}

// AddSeries registers a price series.
func (f *FakeProvider) AddSeries(series *market.PriceSeries) *FakeProvider {
	f.Series[series.Ticker] = series
	return f
}

// AddQuote registers a quote.
func (f *FakeProvider) AddQuote(q market.Quote) *FakeProvider {
	f.Quotes[q.Ticker] = &q
	return f
}

// History implements market.Provider.
func (f *FakeProvider) History(ctx context.Context, ticker string, start, end time.Time) (*market.PriceSeries, error) {
	series, ok := f.Series[ticker]
	if !ok {
		return nil, apperrors.NewUnresolvedTicker(ticker, nil)
	}
	if start.IsZero() && end.IsZero() {
		return series, nil
	}
	lo := start
	if lo.IsZero() {
		lo = series.First().Date
	}
	hi := end
	if hi.IsZero() {
		hi = series.Last().Date
	}
	out := series.Slice(lo, hi)
	if out.Len() == 0 {
		return nil, apperrors.NewUnresolvedTicker(ticker, nil)
	}
	return out, nil
}

// Quote implements market.Provider.
func (f *FakeProvider) Quote(ctx context.Context, ticker string) (*market.Quote, error) {
	q, ok := f.Quotes[ticker]
	if !ok {
		return nil, apperrors.NewUnresolvedTicker(ticker, nil)
	}
	return q, nil
}
