package market

import (
	"context"
	"time"

	apperrors "twoziq/internal/errors"
)

// Provider is the price-data collaborator the engine consumes. Resolution of
// tickers, fetching and retry policy all live behind this boundary; the
// engine only sees validated series and quotes.
type Provider interface {
	// History returns the closing-price series for a ticker with
	// start <= date <= end. A zero end means "through the latest available".
	History(ctx context.Context, ticker string, start, end time.Time) (*PriceSeries, error)

	// Quote returns the current market cap and trailing P/E for a ticker.
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

// UnavailableProvider stands in when the price store cannot be reached at
// startup: every call fails with a typed MARKET_DATA_UNAVAILABLE error
// instead of panicking, so the server can still serve /health.
type UnavailableProvider struct{}

// History implements Provider.
func (UnavailableProvider) History(ctx context.Context, ticker string, start, end time.Time) (*PriceSeries, error) {
	return nil, apperrors.NewAppError(apperrors.ErrCodeMarketDataUnavailable,
		"price store is not available", nil)
}

// Quote implements Provider.
func (UnavailableProvider) Quote(ctx context.Context, ticker string) (*Quote, error) {
	return nil, apperrors.NewAppError(apperrors.ErrCodeMarketDataUnavailable,
		"price store is not available", nil)
}
