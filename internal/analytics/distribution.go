package analytics

import (
	"time"

	apperrors "twoziq/internal/errors"
)

// ZScoreRecord is one rolling Z-score observation: how many standard
// deviations the period return at Date sits from the mean of the preceding
// window.
type ZScoreRecord struct {
	Date        time.Time `json:"date"`
	RollingMean float64   `json:"rolling_mean"`
	RollingStd  float64   `json:"rolling_std"`
	Return      float64   `json:"return"`
	Z           float64   `json:"z"`
	// Degenerate marks a zero-variance window: Z is reported as 0 rather
	// than raised, since quiet or illiquid stretches must not abort the
	// history computation.
	Degenerate bool `json:"degenerate,omitempty"`
}

// HistogramBin is one left-edge/count pair. Across a histogram the counts
// always sum to the number of observations binned.
type HistogramBin struct {
	Edge  float64 `json:"edge"`
	Count int     `json:"count"`
}

// Distribution is the return-distribution analysis over a rolling window.
type Distribution struct {
	Window      int            `json:"window"`
	Mean        float64        `json:"mean"`
	Std         float64        `json:"std"`
	CurrentZ    float64        `json:"current_z"`
	Degenerate  bool           `json:"degenerate,omitempty"`
	ZHistory    []ZScoreRecord `json:"z_history"`
	Histogram   []HistogramBin `json:"histogram"`
	BinWidth    float64        `json:"bin_width"`
	Observation int            `json:"observations"`
}

// AnalyzeDistribution computes the rolling Z-score history and the binned
// return histogram for a return series. window is the rolling length L;
// binCount <= 0 selects the Sturges rule.
func AnalyzeDistribution(returns *ReturnSeries, window, binCount int) (*Distribution, error) {
	n := returns.Len()
	if n < window+1 {
		return nil, apperrors.NewInsufficientData("rolling distribution", n, window+1)
	}

	values := returns.Values()

	// Z-score at t uses the mean/std of the L returns strictly before t.
	history := make([]ZScoreRecord, 0, n-window)
	for t := window; t < n; t++ {
		windowVals := values[t-window : t]
		m := mean(windowVals)
		s := sampleStd(windowVals)
		rec := ZScoreRecord{
			Date:        returns.Points[t].Date,
			RollingMean: m,
			RollingStd:  s,
			Return:      values[t],
		}
		if s == 0 {
			rec.Degenerate = true
		} else {
			rec.Z = (values[t] - m) / s
		}
		history = append(history, rec)
	}

	current := history[len(history)-1]

	// Histogram over the trailing analysis window (the last L returns).
	windowVals := values[n-window:]
	bins, width := binReturns(windowVals, binCount)

	return &Distribution{
		Window:      window,
		Mean:        current.RollingMean,
		Std:         current.RollingStd,
		CurrentZ:    current.Z,
		Degenerate:  current.Degenerate,
		ZHistory:    history,
		Histogram:   bins,
		BinWidth:    width,
		Observation: len(windowVals),
	}, nil
}

// binReturns buckets values into equal-width bins recording left edges.
// Every value lands in exactly one bin; the maximum closes into the last.
func binReturns(values []float64, binCount int) ([]HistogramBin, float64) {
	if binCount <= 0 {
		binCount = sturgesBins(len(values))
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	// All-identical values: one bin holds everything.
	if hi == lo {
		return []HistogramBin{{Edge: lo, Count: len(values)}}, 0
	}

	width := (hi - lo) / float64(binCount)
	bins := make([]HistogramBin, binCount)
	for i := range bins {
		bins[i].Edge = lo + float64(i)*width
	}
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Count++
	}
	return bins, width
}
