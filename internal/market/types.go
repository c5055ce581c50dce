package market

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// PricePoint is one (date, closing price) observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered daily closing-price history for one ticker:
// strictly increasing dates, no duplicates, prices > 0. Treated as immutable
// once built.
type PriceSeries struct {
	Ticker string
	Points []PricePoint
}

// Quote is a point-in-time valuation snapshot for one constituent.
type Quote struct {
	Ticker    string  `json:"ticker"`
	MarketCap float64 `json:"market_cap"`
	PE        float64 `json:"pe"`
}

// NewPriceSeries validates and builds a series from ordered points.
func NewPriceSeries(ticker string, points []PricePoint) (*PriceSeries, error) {
	for i, p := range points {
		if p.Close <= 0 {
			return nil, fmt.Errorf("price series %s: non-positive close %.4f at %s",
				ticker, p.Close, p.Date.Format(DateLayout))
		}
		if i > 0 && !points[i-1].Date.Before(p.Date) {
			return nil, fmt.Errorf("price series %s: dates not strictly increasing at %s",
				ticker, p.Date.Format(DateLayout))
		}
	}
	return &PriceSeries{Ticker: ticker, Points: points}, nil
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// First returns the earliest observation.
func (s *PriceSeries) First() PricePoint {
	return s.Points[0]
}

// Last returns the most recent observation.
func (s *PriceSeries) Last() PricePoint {
	return s.Points[len(s.Points)-1]
}

// Closes returns the closing prices in date order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Dates returns the observation dates in order.
func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Slice returns the sub-series with start <= date <= end. The backing array
// is shared; the series is immutable by convention.
func (s *PriceSeries) Slice(start, end time.Time) *PriceSeries {
	lo := 0
	for lo < len(s.Points) && s.Points[lo].Date.Before(start) {
		lo++
	}
	hi := len(s.Points)
	for hi > lo && s.Points[hi-1].Date.After(end) {
		hi--
	}
	return &PriceSeries{Ticker: s.Ticker, Points: s.Points[lo:hi]}
}

// Since returns the sub-series with date >= start.
func (s *PriceSeries) Since(start time.Time) *PriceSeries {
	lo := 0
	for lo < len(s.Points) && s.Points[lo].Date.Before(start) {
		lo++
	}
	return &PriceSeries{Ticker: s.Ticker, Points: s.Points[lo:]}
}

// Tail returns the sub-series with the last n observations.
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if n >= len(s.Points) {
		return s
	}
	return &PriceSeries{Ticker: s.Ticker, Points: s.Points[len(s.Points)-n:]}
}

// ParseDate parses an ISO 8601 calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}
