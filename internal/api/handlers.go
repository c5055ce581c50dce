package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"twoziq/internal/analytics"
	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Handlers holds the analytics endpoints.
type Handlers struct {
	service *analytics.Service
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(service *analytics.Service) *Handlers {
	return &Handlers{service: service}
}

func (h *Handlers) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// GetValuation handles GET /api/v1/market/valuation.
func (h *Handlers) GetValuation(c *gin.Context) {
	snapshot, err := h.service.Valuation(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toValuationResponse(snapshot))
}

// GetPEHistory handles GET /api/v1/market/pe-history?period=1y|2y|5y.
func (h *Handlers) GetPEHistory(c *gin.Context) {
	period := c.DefaultQuery("period", "2y")
	history, err := h.service.PEHistoryForPeriod(c.Request.Context(), period)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toPEHistoryResponse(history))
}

// GetDCA handles GET /api/v1/dca.
func (h *Handlers) GetDCA(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker")))
	if ticker == "" {
		h.fail(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "ticker is required", nil))
		return
	}
	start, err := parseDateParam(c, "start_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	end, err := parseDateParam(c, "end_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		h.fail(c, apperrors.NewAppErrorWithDetails(apperrors.ErrCodeInvalidInput,
			"invalid amount", c.Query("amount"), nil))
		return
	}
	frequency := c.DefaultQuery("frequency", analytics.FreqMonthly)

	result, err := h.service.DCA(c.Request.Context(), ticker, start, end, amount, frequency)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toDcaResponse(result))
}

// GetRiskReturn handles GET /api/v1/risk-return?tickers=AAPL,MSFT.
func (h *Handlers) GetRiskReturn(c *gin.Context) {
	tickers := splitTickers(c.Query("tickers"))
	if len(tickers) == 0 {
		h.fail(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "tickers is required", nil))
		return
	}
	lookback := 0
	if raw := c.Query("lookback"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 2 {
			h.fail(c, apperrors.NewAppErrorWithDetails(apperrors.ErrCodeInvalidInput,
				"invalid lookback", raw, nil))
			return
		}
		lookback = v
	}

	points := h.service.RiskReturn(c.Request.Context(), tickers, lookback)
	h.ok(c, toRiskReturnEntries(points))
}

// GetDeepAnalysis handles GET /api/v1/analysis/:ticker.
func (h *Handlers) GetDeepAnalysis(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if ticker == "" {
		h.fail(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "ticker is required", nil))
		return
	}

	var opts analytics.DeepAnalysisOptions
	var err error
	if c.Query("start_date") != "" {
		opts.Start, err = parseDateParam(c, "start_date")
		if err != nil {
			h.fail(c, err)
			return
		}
	}
	if c.Query("end_date") != "" {
		opts.End, err = parseDateParam(c, "end_date")
		if err != nil {
			h.fail(c, err)
			return
		}
	}
	if opts.AnalysisPeriod, err = parseIntParam(c, "analysis_period"); err != nil {
		h.fail(c, err)
		return
	}
	if opts.ForecastDays, err = parseIntParam(c, "forecast_days"); err != nil {
		h.fail(c, err)
		return
	}
	if raw := c.Query("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(c, apperrors.NewAppErrorWithDetails(apperrors.ErrCodeInvalidInput, "invalid seed", raw, nil))
			return
		}
		opts.Seed = seed
		opts.HasSeed = true
	}

	result, err := h.service.DeepAnalysis(c.Request.Context(), ticker, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, toDeepAnalysisResponse(result))
}

func parseDateParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, name+" is required", nil)
	}
	t, err := market.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperrors.NewAppErrorWithDetails(apperrors.ErrCodeInvalidInput,
			"invalid "+name, raw, err)
	}
	return t, nil
}

func parseIntParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperrors.NewAppErrorWithDetails(apperrors.ErrCodeInvalidInput, "invalid "+name, raw, nil)
	}
	return v, nil
}

// splitTickers accepts comma- or whitespace-separated ticker lists.
func splitTickers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.ToUpper(strings.TrimSpace(f)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
