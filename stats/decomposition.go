package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/covidtrend/timeseries"
)

// ErrInsufficientData is returned when a series is shorter than two full
// seasonal cycles.
var ErrInsufficientData = errors.New("stats: series must span at least two full periods")

// Model selects how the decomposition components combine.
type Model string

const (
	Additive       Model = "additive"       // Y = T + S + R
	Multiplicative Model = "multiplicative" // Y = T * S * R
)

// ParseModel maps a configuration string onto a Model.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case Additive, "":
		return Additive, nil
	case Multiplicative:
		return Multiplicative, nil
	default:
		return "", fmt.Errorf("stats: unknown decomposition model %q", s)
	}
}

// DecompositionResult represents the decomposition of a time series.
// All components share the observed series' dates. Trend and residual are
// NaN where the centered moving average window does not fit.
type DecompositionResult struct {
	Observed *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Model    Model
}

// Decompose performs classical seasonal decomposition. The trend is a
// centered moving average of width period (2xperiod for even periods), the
// seasonal component is the per-position average of the detrended series,
// normalized to zero mean (additive) or unit mean (multiplicative).
func Decompose(series *timeseries.Series, period int, model Model) (*DecompositionResult, error) {
	if period < 2 {
		return nil, fmt.Errorf("stats: decomposition period must be at least 2, got %d", period)
	}
	n := series.Len()
	if n < 2*period {
		return nil, fmt.Errorf("%w: %d observations, period %d", ErrInsufficientData, n, period)
	}
	if model == "" {
		model = Additive
	}
	if model == Multiplicative && floats.Min(series.Values) <= 0 {
		return nil, errors.New("stats: multiplicative decomposition requires strictly positive values")
	}

	trend := centeredMovingAverage(series.Values, period)

	detrended := make([]float64, n)
	for i, t := range trend {
		switch {
		case math.IsNaN(t):
			detrended[i] = math.NaN()
		case model == Multiplicative:
			detrended[i] = series.Values[i] / t
		default:
			detrended[i] = series.Values[i] - t
		}
	}

	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, d := range detrended {
		if !math.IsNaN(d) {
			pattern[i%period] += d
			counts[i%period]++
		}
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
	}

	mean := floats.Sum(pattern) / float64(period)
	for i := range pattern {
		if model == Multiplicative {
			pattern[i] /= mean
		} else {
			pattern[i] -= mean
		}
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := range seasonal {
		seasonal[i] = pattern[i%period]
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case model == Multiplicative:
			residual[i] = series.Values[i] / (trend[i] * seasonal[i])
		default:
			residual[i] = series.Values[i] - trend[i] - seasonal[i]
		}
	}

	return &DecompositionResult{
		Observed: series.Copy(),
		Trend:    series.WithValues("trend", trend),
		Seasonal: series.WithValues("seasonal", seasonal),
		Residual: series.WithValues("residual", residual),
		Period:   period,
		Model:    model,
	}, nil
}

// centeredMovingAverage returns the centered moving average of values,
// NaN-padded where the window does not fit.
func centeredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		if period%2 == 0 {
			// 2xperiod MA: end points carry half weight
			sum := 0.5*values[i-half] + 0.5*values[i+half] + floats.Sum(values[i-half+1:i+half])
			trend[i] = sum / float64(period)
		} else {
			trend[i] = floats.Sum(values[i-half:i+half+1]) / float64(period)
		}
	}

	return trend
}
