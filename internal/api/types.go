package api

import (
	"time"

	"twoziq/internal/analytics"
	apperrors "twoziq/internal/errors"
	"twoziq/internal/market"
)

// Response is the success envelope; errors use errors.ErrorResponse.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ValuationResponse is the weighted P/E snapshot DTO.
type ValuationResponse struct {
	WeightedPE     float64               `json:"weighted_pe"`
	TotalMarketCap float64               `json:"total_market_cap"`
	Details        []ConstituentResponse `json:"details"`
}

// ConstituentResponse is one basket member's contribution.
type ConstituentResponse struct {
	Ticker          string  `json:"ticker"`
	PE              float64 `json:"pe"`
	MarketCap       float64 `json:"market_cap"`
	ImpliedEarnings float64 `json:"implied_earnings"`
	Excluded        bool    `json:"excluded,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}

// PEHistoryResponse is the weighted P/E trend DTO.
type PEHistoryResponse struct {
	Period string    `json:"period"`
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

// DcaResponse is the DCA backtest DTO.
type DcaResponse struct {
	Ticker         string    `json:"ticker"`
	TotalInvested  float64   `json:"total_invested"`
	FinalValue     float64   `json:"final_value"`
	Shares         float64   `json:"shares"`
	Contributions  int       `json:"contributions"`
	ReturnPct      float64   `json:"return_pct"`
	Dates          []string  `json:"dates"`
	InvestedCurve  []float64 `json:"invested_curve"`
	ValuationCurve []float64 `json:"valuation_curve"`
}

// RiskReturnEntry is the per-ticker result variant: metrics or error, never
// silently dropped.
type RiskReturnEntry struct {
	Ticker               string          `json:"ticker"`
	AnnualizedReturn     float64         `json:"annualized_return"`
	AnnualizedVolatility float64         `json:"annualized_volatility"`
	Degenerate           bool            `json:"degenerate,omitempty"`
	Error                *RiskError      `json:"error,omitempty"`
}

// RiskError is the slim per-item failure shape.
type RiskError struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// TrendResponse is the log-linear channel DTO.
type TrendResponse struct {
	Dates        []string  `json:"dates"`
	Prices       []float64 `json:"prices"`
	Middle       []float64 `json:"middle"`
	Upper        []float64 `json:"upper"`
	Lower        []float64 `json:"lower"`
	ResidualStd  float64   `json:"residual_std"`
	BandPosition float64   `json:"band_position"`
	Zone         string    `json:"zone"`
	Degenerate   bool      `json:"degenerate,omitempty"`
}

// ZScorePoint is one rolling Z-score display point.
type ZScorePoint struct {
	Date       string  `json:"date"`
	Z          float64 `json:"z"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// QuantResponse is the distribution/Z-score DTO.
type QuantResponse struct {
	Mean       float64       `json:"mean"`
	Std        float64       `json:"std"`
	CurrentZ   float64       `json:"current_z"`
	Degenerate bool          `json:"degenerate,omitempty"`
	ZHistory   []ZScorePoint `json:"z_history"`
	Bins       []float64     `json:"bins"`
	Counts     []int         `json:"counts"`
}

// SimulationResponse is the Monte Carlo DTO.
type SimulationResponse struct {
	Mu         float64     `json:"mu"`
	Sigma      float64     `json:"sigma"`
	P05        []float64   `json:"p05"`
	P50        []float64   `json:"p50"`
	P95        []float64   `json:"p95"`
	Samples    [][]float64 `json:"samples"`
	ActualPast []float64   `json:"actual_past"`
	Degenerate bool        `json:"degenerate,omitempty"`
}

// DeepAnalysisResponse composes trend, quant and simulation for one ticker.
type DeepAnalysisResponse struct {
	Ticker       string             `json:"ticker"`
	FirstDate    string             `json:"first_date"`
	CurrentPrice float64            `json:"current_price"`
	InvestedDays int                `json:"invested_days"`
	Trend        TrendResponse      `json:"trend"`
	Quant        QuantResponse      `json:"quant"`
	Simulation   SimulationResponse `json:"simulation"`
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(market.DateLayout)
	}
	return out
}

func toValuationResponse(s *analytics.ValuationSnapshot) ValuationResponse {
	details := make([]ConstituentResponse, len(s.Constituents))
	for i, c := range s.Constituents {
		details[i] = ConstituentResponse{
			Ticker:          c.Ticker,
			PE:              c.PE,
			MarketCap:       c.MarketCap,
			ImpliedEarnings: c.ImpliedEarnings,
			Excluded:        c.Excluded,
			Reason:          c.Reason,
		}
	}
	return ValuationResponse{
		WeightedPE:     s.WeightedPE,
		TotalMarketCap: s.TotalMarketCap,
		Details:        details,
	}
}

func toPEHistoryResponse(h *analytics.PEHistory) PEHistoryResponse {
	return PEHistoryResponse{
		Period: h.Period,
		Dates:  formatDates(h.Dates),
		Values: h.Values,
	}
}

func toDcaResponse(r *analytics.DcaResult) DcaResponse {
	return DcaResponse{
		Ticker:         r.Ticker,
		TotalInvested:  r.TotalInvested,
		FinalValue:     r.FinalValue,
		Shares:         r.Shares,
		Contributions:  r.Contributions,
		ReturnPct:      r.ReturnPct,
		Dates:          formatDates(r.Dates),
		InvestedCurve:  r.InvestedCurve,
		ValuationCurve: r.ValuationCurve,
	}
}

func toRiskReturnEntries(points []analytics.RiskReturnPoint) []RiskReturnEntry {
	out := make([]RiskReturnEntry, len(points))
	for i, p := range points {
		entry := RiskReturnEntry{
			Ticker:               p.Ticker,
			AnnualizedReturn:     p.AnnualizedReturn,
			AnnualizedVolatility: p.AnnualizedVolatility,
			Degenerate:           p.Degenerate,
		}
		if p.Error != nil {
			entry.Error = &RiskError{Code: p.Error.Code, Message: p.Error.Message}
		}
		out[i] = entry
	}
	return out
}

func toDeepAnalysisResponse(r *analytics.DeepAnalysisResult) DeepAnalysisResponse {
	zHistory := make([]ZScorePoint, len(r.Distribution.ZHistory))
	for i, rec := range r.Distribution.ZHistory {
		zHistory[i] = ZScorePoint{
			Date:       rec.Date.Format(market.DateLayout),
			Z:          rec.Z,
			Degenerate: rec.Degenerate,
		}
	}
	bins := make([]float64, len(r.Distribution.Histogram))
	counts := make([]int, len(r.Distribution.Histogram))
	for i, b := range r.Distribution.Histogram {
		bins[i] = b.Edge
		counts[i] = b.Count
	}

	return DeepAnalysisResponse{
		Ticker:       r.Ticker,
		FirstDate:    r.FirstDate.Format(market.DateLayout),
		CurrentPrice: r.CurrentPrice,
		InvestedDays: r.Observations,
		Trend: TrendResponse{
			Dates:        formatDates(r.Trend.Dates),
			Prices:       r.Trend.Prices,
			Middle:       r.Trend.Middle,
			Upper:        r.Trend.Upper,
			Lower:        r.Trend.Lower,
			ResidualStd:  r.Trend.ResidualStd,
			BandPosition: r.Trend.BandPosition,
			Zone:         r.Trend.Zone,
			Degenerate:   r.Trend.Degenerate,
		},
		Quant: QuantResponse{
			Mean:       r.Distribution.Mean,
			Std:        r.Distribution.Std,
			CurrentZ:   r.Distribution.CurrentZ,
			Degenerate: r.Distribution.Degenerate,
			ZHistory:   zHistory,
			Bins:       bins,
			Counts:     counts,
		},
		Simulation: SimulationResponse{
			Mu:         r.Simulation.Mu,
			Sigma:      r.Simulation.Sigma,
			P05:        r.Simulation.P05,
			P50:        r.Simulation.P50,
			P95:        r.Simulation.P95,
			Samples:    r.Simulation.SamplePaths,
			ActualPast: r.ActualPast,
			Degenerate: r.Simulation.Degenerate,
		},
	}
}
