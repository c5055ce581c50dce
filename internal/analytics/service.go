package analytics

import (
	"context"
	"time"

	"twoziq/internal/cache"
	"twoziq/internal/config"
	apperrors "twoziq/internal/errors"
	"twoziq/internal/logger"
	"twoziq/internal/market"
	"twoziq/internal/monitoring"
)

// Valuation-period tokens accepted by PEHistoryForPeriod.
var periodSpans = map[string]int{
	"1y": 1,
	"2y": 2,
	"5y": 5,
}

// Service is the analytics engine facade: every dashboard operation maps to
// one method. The service is stateless per request; the only shared state is
// the cache tier for pre-computed snapshots.
type Service struct {
	provider market.Provider
	cache    cache.Cacher
	cfg      *config.Config
	metrics  *monitoring.Metrics
	log      logger.Logger
}

// NewService creates the analytics service.
func NewService(provider market.Provider, c cache.Cacher, cfg *config.Config, metrics *monitoring.Metrics) *Service {
	return &Service{
		provider: provider,
		cache:    c,
		cfg:      cfg,
		metrics:  metrics,
		log:      logger.GetGlobalLogger().WithField("component", "analytics"),
	}
}

// Basket returns the configured valuation basket.
func (s *Service) Basket() []string {
	return s.cfg.Market.Basket
}

// Valuation computes the market-cap-weighted P/E snapshot for the configured
// basket. Constituents whose quotes cannot be resolved are skipped; the
// aggregation runs over the rest.
func (s *Service) Valuation(ctx context.Context) (*ValuationSnapshot, error) {
	const cacheKey = "analytics:valuation"

	var cached ValuationSnapshot
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		s.metrics.CacheHit("valuation")
		return &cached, nil
	}
	s.metrics.CacheMiss("valuation")

	defer s.metrics.TimeComputation("valuation")()

	quotes := make([]market.Quote, 0, len(s.cfg.Market.Basket))
	for _, ticker := range s.cfg.Market.Basket {
		quote, err := s.provider.Quote(ctx, ticker)
		if err != nil {
			s.log.Warn("skipping constituent without quote", "ticker", ticker, "error", err)
			continue
		}
		quotes = append(quotes, *quote)
	}

	snapshot, err := ComputeValuation(quotes)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKey, snapshot)
	return snapshot, nil
}

// PEHistoryForPeriod computes the weighted P/E trend for a period token
// (1y/2y/5y).
func (s *Service) PEHistoryForPeriod(ctx context.Context, period string) (*PEHistory, error) {
	years, ok := periodSpans[period]
	if !ok {
		return nil, apperrors.NewAppErrorWithDetails(apperrors.ErrCodeUnknownPeriod,
			"Unknown period", period, nil)
	}
	cacheKey := "analytics:pe_history:" + period

	var cached PEHistory
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		s.metrics.CacheHit("pe_history")
		return &cached, nil
	}
	s.metrics.CacheMiss("pe_history")

	defer s.metrics.TimeComputation("pe_history")()

	start := time.Now().UTC().AddDate(-years, 0, 0)
	history, err := ComputePEHistory(ctx, s.provider, s.cfg.Market.Basket, start, period)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKey, history)
	return history, nil
}

// DCA replays a periodic-contribution strategy for one ticker. Parameters
// are validated before the fetch so range and frequency errors are reported
// as such rather than as a failed ticker lookup.
func (s *Service) DCA(ctx context.Context, ticker string, start, end time.Time, amount float64, frequency string) (*DcaResult, error) {
	defer s.metrics.TimeComputation("dca")()

	if err := validateDCAParams(start, end, amount, frequency); err != nil {
		return nil, err
	}
	series, err := s.provider.History(ctx, ticker, start, end)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeUnresolvedTicker, "price history unavailable")
	}
	return SimulateDCA(series, start, end, amount, frequency)
}

// RiskReturn computes annualized risk/return points for a batch of tickers.
func (s *Service) RiskReturn(ctx context.Context, tickers []string, lookback int) []RiskReturnPoint {
	defer s.metrics.TimeComputation("risk_return")()
	return RiskReturnBatch(ctx, s.provider, tickers, lookback)
}

// DeepAnalysisOptions parameterize a deep analysis run. Zero values select
// the configured defaults; Seed pins the simulation for reproducibility.
type DeepAnalysisOptions struct {
	Start          time.Time
	End            time.Time
	AnalysisPeriod int
	ForecastDays   int
	Seed           int64
	HasSeed        bool
}

// DeepAnalysisResult bundles the trend channel, return distribution and
// Monte Carlo simulation computed over one fetched series.
type DeepAnalysisResult struct {
	Ticker       string    `json:"ticker"`
	FirstDate    time.Time `json:"first_date"`
	CurrentPrice float64   `json:"current_price"`
	Observations int       `json:"observations"`

	Trend        *TrendFit     `json:"trend"`
	Distribution *Distribution `json:"distribution"`
	Simulation   *Simulation   `json:"simulation"`

	// ActualPast is the trailing observed closes over the forecast-window
	// length, shipped for chart continuity at the anchor point.
	ActualPast []float64 `json:"actual_past"`
}

// zHistoryDisplayLen caps the Z-score history shipped to the dashboard.
const zHistoryDisplayLen = 100

// DeepAnalysis fetches the ticker's history once and composes the trend
// regression, distribution analysis and path simulation over it.
func (s *Service) DeepAnalysis(ctx context.Context, ticker string, opts DeepAnalysisOptions) (*DeepAnalysisResult, error) {
	defer s.metrics.TimeComputation("deep_analysis")()

	full, err := s.provider.History(ctx, ticker, time.Time{}, opts.End)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeUnresolvedTicker, "price history unavailable")
	}

	start := opts.Start
	if start.IsZero() {
		start, _ = market.ParseDate(s.cfg.Analytics.TrendStart)
	}
	analysisPeriod := opts.AnalysisPeriod
	if analysisPeriod <= 0 {
		analysisPeriod = s.cfg.Analytics.AnalysisWindow
	}
	forecastDays := opts.ForecastDays
	if forecastDays <= 0 {
		forecastDays = s.cfg.Analytics.ForecastDays
	}

	// Fall back to the full history when the requested start leaves too
	// little to fit.
	series := full.Since(start)
	if series.Len() < 10 {
		series = full
	}

	trend, err := FitTrend(series)
	if err != nil {
		return nil, err
	}

	returns, err := BuildReturnSeries(series, StepDaily)
	if err != nil {
		return nil, err
	}
	dist, err := AnalyzeDistribution(returns, analysisPeriod, s.cfg.Analytics.HistogramBins)
	if err != nil {
		return nil, err
	}
	if len(dist.ZHistory) > zHistoryDisplayLen {
		dist.ZHistory = dist.ZHistory[len(dist.ZHistory)-zHistoryDisplayLen:]
	}

	seed := opts.Seed
	if !opts.HasSeed {
		seed = time.Now().UnixNano()
	}
	sim, err := Simulate(ctx, series.Tail(analysisPeriod+1), SimulationConfig{
		Days:    forecastDays,
		Paths:   s.cfg.Analytics.SimulationRuns,
		Samples: s.cfg.Analytics.SamplePaths,
		Seed:    seed,
		Workers: s.cfg.Analytics.Workers,
	})
	if err != nil {
		return nil, err
	}

	return &DeepAnalysisResult{
		Ticker:       ticker,
		FirstDate:    full.First().Date,
		CurrentPrice: series.Last().Close,
		Observations: series.Len(),
		Trend:        trend,
		Distribution: dist,
		Simulation:   sim,
		ActualPast:   series.Tail(forecastDays).Closes(),
	}, nil
}

// InvalidateSnapshots drops the cached basket-wide results so the next
// request (or a pre-warm job) recomputes them from fresh data.
func (s *Service) InvalidateSnapshots(ctx context.Context) {
	keys := []string{"analytics:valuation"}
	for period := range periodSpans {
		keys = append(keys, "analytics:pe_history:"+period)
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn("failed to invalidate cached snapshot", "key", key, "error", err)
		}
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := s.cache.SetJSON(ctx, key, value, s.cfg.Market.CacheTTL); err != nil {
		s.log.Warn("failed to cache analytics result", "key", key, "error", err)
	}
}
