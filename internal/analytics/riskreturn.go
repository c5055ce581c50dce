package analytics

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// TradingDaysPerYear is the annualization base for daily observations.
const TradingDaysPerYear = 252

// RiskReturnPoint is the per-ticker result variant of a risk/return batch.
// Either the metrics are populated, or Error carries the failure; callers
// can distinguish "zero risk" from "data unavailable".
type RiskReturnPoint struct {
	Ticker               string  `json:"ticker"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`

	// Degenerate marks a zero-variance return window (volatility 0 is the
	// reported value, not an error).
	Degenerate bool `json:"degenerate,omitempty"`

	Error *apperrors.AppError `json:"error,omitempty"`
}

// OK reports whether the point carries metrics rather than a failure.
func (p *RiskReturnPoint) OK() bool {
	return p.Error == nil
}

// AnnualizeReturns computes the geometric annualized return and annualized
// volatility from daily log returns. Geometric compounding is the single
// convention used across the engine: exp(sum(log r) * 252/n) - 1.
func AnnualizeReturns(logReturns []float64) (annReturn, annVol float64, degenerate bool, err error) {
	n := len(logReturns)
	if n < 2 {
		return 0, 0, false, apperrors.NewInsufficientData("annualization", n, 2)
	}
	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	annReturn = math.Exp(sum*TradingDaysPerYear/float64(n)) - 1
	std := sampleStd(logReturns)
	annVol = std * math.Sqrt(TradingDaysPerYear)
	return annReturn, annVol, std == 0, nil
}

// RiskReturnBatch computes one RiskReturnPoint per requested ticker over the
// lookback window (trading days). Tickers run concurrently; output order
// matches request order, and a failed ticker degrades to a per-item error
// entry rather than aborting the batch.
func RiskReturnBatch(ctx context.Context, provider market.Provider, tickers []string, lookback int) []RiskReturnPoint {
	if lookback <= 0 {
		lookback = TradingDaysPerYear
	}

	points := make([]RiskReturnPoint, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			points[i] = riskReturnOne(gctx, provider, ticker, lookback)
			return nil
		})
	}
	// Workers never return errors; failures land in the per-item entries.
	_ = g.Wait()
	return points
}

func riskReturnOne(ctx context.Context, provider market.Provider, ticker string, lookback int) RiskReturnPoint {
	point := RiskReturnPoint{Ticker: ticker}

	// Calendar span generously covers the requested trading-day window.
	start := time.Now().UTC().AddDate(0, 0, -lookback*2)
	series, err := provider.History(ctx, ticker, start, time.Time{})
	if err != nil {
		point.Error = apperrors.WrapError(err, apperrors.ErrCodeUnresolvedTicker, "price history unavailable")
		return point
	}

	series = series.Tail(lookback + 1)
	logReturns, err := LogReturns(series)
	if err != nil {
		point.Error = apperrors.GetAppError(err)
		return point
	}

	annReturn, annVol, degenerate, err := AnnualizeReturns(logReturns)
	if err != nil {
		point.Error = apperrors.GetAppError(err)
		return point
	}

	point.AnnualizedReturn = annReturn
	point.AnnualizedVolatility = annVol
	point.Degenerate = degenerate
	return point
}
