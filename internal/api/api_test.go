package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twoziq/internal/analytics"
	"twoziq/internal/cache"
	"twoziq/internal/config"
	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
	"twoziq/internal/monitoring"
	"twoziq/internal/testutils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recentStart anchors fixture series so windows ending today fall inside them.
func recentStart(tradingDays int) time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -tradingDays*7/5 - 14)
}

func newTestServer(t *testing.T, provider market.Provider) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Market.Basket = []string{"AAPL", "MSFT"}
	cfg.Market.CacheTTL = time.Minute

	c := cache.NewMemoryCache(64)
	t.Cleanup(func() { _ = c.Close() })

	metrics := monitoring.NewMetrics()
	service := analytics.NewService(provider, c, cfg, metrics)
	return NewServer(cfg, service, metrics, nil, c)
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return &resp
}

func basketProvider() *testutils.FakeProvider {
	start := recentStart(300)
	return testutils.NewFakeProvider().
		AddSeries(testutils.RandomWalkSeries("AAPL", start, 300, 180, 0.015, 1)).
		AddSeries(testutils.RandomWalkSeries("MSFT", start, 300, 400, 0.012, 2)).
		AddQuote(market.Quote{Ticker: "AAPL", MarketCap: 3000e9, PE: 30}).
		AddQuote(market.Quote{Ticker: "MSFT", MarketCap: 2800e9, PE: 35})
}

func TestGetValuation(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/market/valuation")
	require.Equal(t, http.StatusOK, w.Code)

	var data ValuationResponse
	decodeData(t, w, &data)
	assert.Greater(t, data.WeightedPE, 0.0)
	assert.Equal(t, 5800e9, data.TotalMarketCap)
	require.Len(t, data.Details, 2)
	assert.Equal(t, "AAPL", data.Details[0].Ticker)
}

func TestGetPEHistoryDefaultPeriod(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/market/pe-history")
	require.Equal(t, http.StatusOK, w.Code)

	var data PEHistoryResponse
	decodeData(t, w, &data)
	assert.Equal(t, "2y", data.Period)
	require.NotEmpty(t, data.Values)
	require.Equal(t, len(data.Dates), len(data.Values))
}

func TestGetPEHistoryUnknownPeriod(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/market/pe-history?period=3y")
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, apperrors.ErrCodeUnknownPeriod, resp.Error.Code)
	assert.Equal(t, "/api/v1/market/pe-history", resp.Path)
}

func TestGetDCA(t *testing.T) {
	provider := testutils.NewFakeProvider().
		AddSeries(testutils.SeriesFromCloses("VOO", testutils.Day("2024-01-02"),
			[]float64{100, 102, 101, 105, 103}))
	s := newTestServer(t, provider)

	w := doGet(t, s, "/api/v1/dca?ticker=voo&start_date=2024-01-02&end_date=2024-01-08&amount=100&frequency=daily")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data DcaResponse
	decodeData(t, w, &data)
	assert.Equal(t, "VOO", data.Ticker)
	assert.Equal(t, 500.0, data.TotalInvested)
	assert.Equal(t, 5, data.Contributions)
	require.Len(t, data.ValuationCurve, 5)
	assert.InDelta(t, data.Shares*103, data.FinalValue, 1e-9)
}

func TestGetDCAValidation(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/dca?start_date=2024-01-02&end_date=2024-02-01&amount=100")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, decodeError(t, w).Error.Code)

	w = doGet(t, s, "/api/v1/dca?ticker=AAPL&start_date=2024-01-02&end_date=2024-02-01&amount=oops")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, decodeError(t, w).Error.Code)

	w = doGet(t, s, "/api/v1/dca?ticker=NOPE&start_date=2024-01-02&end_date=2024-02-01&amount=100")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrCodeUnresolvedTicker, decodeError(t, w).Error.Code)
}

func TestGetDCAUnknownFrequency(t *testing.T) {
	provider := testutils.NewFakeProvider().
		AddSeries(testutils.SeriesFromCloses("VOO", testutils.Day("2024-01-02"),
			[]float64{100, 102, 101, 105, 103}))
	s := newTestServer(t, provider)

	w := doGet(t, s, "/api/v1/dca?ticker=VOO&start_date=2024-01-02&end_date=2024-01-08&amount=100&frequency=hourly")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeUnknownFrequency, decodeError(t, w).Error.Code)
}

func TestGetRiskReturnPartialFailure(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/risk-return?tickers=AAPL,NOPE,MSFT")
	require.Equal(t, http.StatusOK, w.Code)

	var data []RiskReturnEntry
	decodeData(t, w, &data)
	require.Len(t, data, 3)

	assert.Equal(t, "AAPL", data[0].Ticker)
	assert.Nil(t, data[0].Error)
	assert.Greater(t, data[0].AnnualizedVolatility, 0.0)

	require.NotNil(t, data[1].Error)
	assert.Equal(t, apperrors.ErrCodeUnresolvedTicker, data[1].Error.Code)

	assert.Equal(t, "MSFT", data[2].Ticker)
	assert.Nil(t, data[2].Error)
}

func TestGetRiskReturnMissingTickers(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/risk-return")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, decodeError(t, w).Error.Code)

	w = doGet(t, s, "/api/v1/risk-return?tickers=AAPL&lookback=1")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDeepAnalysis(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/analysis/AAPL?seed=42")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data DeepAnalysisResponse
	decodeData(t, w, &data)
	assert.Equal(t, "AAPL", data.Ticker)
	assert.Greater(t, data.CurrentPrice, 0.0)
	assert.Equal(t, 300, data.InvestedDays)

	require.Equal(t, len(data.Trend.Dates), len(data.Trend.Middle))
	require.Equal(t, len(data.Trend.Upper), len(data.Trend.Lower))
	assert.NotEmpty(t, data.Quant.ZHistory)
	require.Equal(t, len(data.Quant.Bins), len(data.Quant.Counts))

	cfg := config.Default()
	assert.Len(t, data.Simulation.P50, cfg.Analytics.ForecastDays+1)
	assert.Len(t, data.Simulation.Samples, cfg.Analytics.SamplePaths)

	// Same seed, same payload.
	again := doGet(t, s, "/api/v1/analysis/AAPL?seed=42")
	var repeat DeepAnalysisResponse
	decodeData(t, again, &repeat)
	assert.Equal(t, data.Simulation.P50, repeat.Simulation.P50)
}

func TestGetDeepAnalysisErrors(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/api/v1/analysis/NOPE")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrCodeUnresolvedTicker, decodeError(t, w).Error.Code)

	w = doGet(t, s, "/api/v1/analysis/AAPL?forecast_days=zero")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, decodeError(t, w).Error.Code)

	w = doGet(t, s, "/api/v1/analysis/AAPL?seed=not-a-number")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "unavailable", body.Services["price_store"])
	assert.Equal(t, "ok", body.Services["cache"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, basketProvider())

	// Drive one request through the middleware so counters exist.
	doGet(t, s, "/api/v1/market/valuation")

	w := doGet(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"),
		"metrics exposition should include the request counter")
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t, basketProvider())

	w := doGet(t, s, "/health")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
