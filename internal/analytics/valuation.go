package analytics

import (
	"context"
	"time"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Constituent is one basket member's contribution to the weighted P/E.
type Constituent struct {
	Ticker          string  `json:"ticker"`
	PE              float64 `json:"pe"`
	MarketCap       float64 `json:"market_cap"`
	ImpliedEarnings float64 `json:"implied_earnings"`
	// Excluded flags constituents with an invalid P/E or market cap; they
	// carry no weight in the aggregate but remain visible to the caller.
	Excluded bool   `json:"excluded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ValuationSnapshot is the market-cap-weighted P/E across the basket:
// weighted_pe = total_market_cap / total_implied_earnings over valid
// constituents only.
type ValuationSnapshot struct {
	WeightedPE           float64       `json:"weighted_pe"`
	TotalMarketCap       float64       `json:"total_market_cap"`
	TotalImpliedEarnings float64       `json:"total_implied_earnings"`
	Constituents         []Constituent `json:"constituents"`
}

// PEHistory is a market-cap-weighted valuation trend over a period. Values
// are a weighted price index rebased so the latest value equals the current
// weighted P/E; with static earnings this tracks the basket's P/E drift.
type PEHistory struct {
	Period string      `json:"period"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// ComputeValuation builds the weighted P/E snapshot from constituent quotes.
// Invalid constituents (pe <= 0 or market cap <= 0) are excluded with a
// flag, never a crash.
func ComputeValuation(quotes []market.Quote) (*ValuationSnapshot, error) {
	snapshot := &ValuationSnapshot{
		Constituents: make([]Constituent, 0, len(quotes)),
	}

	for _, q := range quotes {
		c := Constituent{Ticker: q.Ticker, PE: q.PE, MarketCap: q.MarketCap}
		switch {
		case q.MarketCap <= 0:
			c.Excluded = true
			c.Reason = "missing market cap"
		case q.PE <= 0:
			c.Excluded = true
			c.Reason = "non-positive P/E"
		default:
			c.ImpliedEarnings = q.MarketCap / q.PE
			snapshot.TotalMarketCap += q.MarketCap
			snapshot.TotalImpliedEarnings += c.ImpliedEarnings
		}
		snapshot.Constituents = append(snapshot.Constituents, c)
	}

	if snapshot.TotalImpliedEarnings == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrCodeInsufficientData,
			"no valid constituents for weighted P/E", nil)
	}
	snapshot.WeightedPE = snapshot.TotalMarketCap / snapshot.TotalImpliedEarnings
	return snapshot, nil
}

// basketSeries pairs a constituent's history with its weight inputs.
type basketSeries struct {
	quote  market.Quote
	series *market.PriceSeries
}

// ComputePEHistory builds the weighted valuation trend from per-constituent
// histories and quotes. Dates are intersected across all constituents so
// every output point aggregates the full basket.
func ComputePEHistory(ctx context.Context, provider market.Provider, basket []string, start time.Time, period string) (*PEHistory, error) {
	current := make([]basketSeries, 0, len(basket))
	for _, ticker := range basket {
		quote, err := provider.Quote(ctx, ticker)
		if err != nil {
			// A constituent without a quote carries no weight; skip it.
			continue
		}
		series, err := provider.History(ctx, ticker, start, time.Time{})
		if err != nil {
			continue
		}
		current = append(current, basketSeries{quote: *quote, series: series})
	}
	if len(current) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrCodeMarketDataUnavailable,
			"no constituent histories available", nil)
	}

	snapshot, err := ComputeValuation(quotesOf(current))
	if err != nil {
		return nil, err
	}

	dates := intersectDates(current)
	if len(dates) == 0 {
		return nil, apperrors.NewInsufficientData("P/E history", 0, 1)
	}

	// Per-constituent close lookup on the common dates.
	closes := make([]map[time.Time]float64, len(current))
	for i, bs := range current {
		m := make(map[time.Time]float64, bs.series.Len())
		for _, p := range bs.series.Points {
			m[p.Date] = p.Close
		}
		closes[i] = m
	}

	history := &PEHistory{
		Period: period,
		Dates:  dates,
		Values: make([]float64, len(dates)),
	}
	for di, date := range dates {
		var idx float64
		for i, bs := range current {
			// Constituents the snapshot excluded carry no weight; weights
			// over the rest sum to 1, keeping the latest value equal to the
			// current weighted P/E.
			if snapshot.Constituents[i].Excluded {
				continue
			}
			weight := bs.quote.MarketCap / snapshot.TotalMarketCap
			last := bs.series.Last().Close
			idx += closes[i][date] / last * weight
		}
		history.Values[di] = idx * snapshot.WeightedPE
	}
	return history, nil
}

func quotesOf(bs []basketSeries) []market.Quote {
	out := make([]market.Quote, len(bs))
	for i, b := range bs {
		out[i] = b.quote
	}
	return out
}

// intersectDates returns the dates present in every constituent series, in
// chronological order.
func intersectDates(bs []basketSeries) []time.Time {
	counts := make(map[time.Time]int)
	for _, b := range bs {
		for _, p := range b.series.Points {
			counts[p.Date]++
		}
	}
	var out []time.Time
	for _, p := range bs[0].series.Points {
		if counts[p.Date] == len(bs) {
			out = append(out, p.Date)
		}
	}
	return out
}
