// Package forecast wraps model fitting and seasonal decomposition behind
// narrow interfaces so the search procedure can be swapped out.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/sartorproj/covidtrend/arima"
	"github.com/sartorproj/covidtrend/autoarima"
	"github.com/sartorproj/covidtrend/stats"
	"github.com/sartorproj/covidtrend/timeseries"
)

// DefaultConfidence is the prediction interval level used when none is set.
const DefaultConfidence = 0.95

// Model is a fitted forecasting model.
type Model interface {
	// Predict returns point forecasts for the next horizon observations.
	Predict(horizon int) ([]float64, error)
	// InSample returns fitted values on the training dates.
	InSample() *timeseries.Series
	// Description names the model, e.g. "ARIMA(1,1,0)".
	Description() string
}

// IntervalModel is a Model that can also bound its forecasts.
type IntervalModel interface {
	Model
	PredictWithInterval(horizon int, confidence float64) (*arima.Forecast, error)
}

// Forecaster fits a Model to a series.
type Forecaster interface {
	Fit(ctx context.Context, series *timeseries.Series) (Model, error)
}

// ForecasterFunc adapts a function to the Forecaster interface.
type ForecasterFunc func(ctx context.Context, series *timeseries.Series) (Model, error)

// Fit calls f(ctx, series).
func (f ForecasterFunc) Fit(ctx context.Context, series *timeseries.Series) (Model, error) {
	return f(ctx, series)
}

// AutoARIMA is the Forecaster backed by the autoarima search.
type AutoARIMA struct {
	Config *autoarima.Config
}

// Fit runs the order search and returns the selected model.
func (a AutoARIMA) Fit(ctx context.Context, series *timeseries.Series) (Model, error) {
	result, err := autoarima.AutoARIMA(ctx, series, a.Config)
	if err != nil {
		return nil, err
	}
	return &arimaModel{result: result}, nil
}

type arimaModel struct {
	result *autoarima.Result
}

func (m *arimaModel) Predict(horizon int) ([]float64, error) {
	return m.result.Predict(horizon)
}

func (m *arimaModel) PredictWithInterval(horizon int, confidence float64) (*arima.Forecast, error) {
	return m.result.PredictWithInterval(horizon, confidence)
}

func (m *arimaModel) InSample() *timeseries.Series {
	return m.result.InSample()
}

func (m *arimaModel) Description() string {
	return m.result.Order.String()
}

func (m *arimaModel) Summary() *arima.Summary {
	return m.result.Model.Summary()
}

// Result holds the in-sample fit and the forecast of one series.
type Result struct {
	InSample *timeseries.Series // training dates
	Forecast *timeseries.Series // the horizon days after the last training date
	Lower    *timeseries.Series // nil when the model has no intervals
	Upper    *timeseries.Series
	Model    string

	// Diagnostics is set for ARIMA-family models.
	Diagnostics *arima.Summary
}

// Options tune FitForecast.
type Options struct {
	Confidence float64 // prediction interval level, DefaultConfidence when zero
}

// FitForecast fits f to series and forecasts horizon consecutive calendar
// days past its last date.
func FitForecast(ctx context.Context, series *timeseries.Series, horizon int, f Forecaster, opts ...Options) (*Result, error) {
	if series.IsEmpty() {
		return nil, timeseries.ErrNoData
	}
	if horizon < 1 {
		return nil, fmt.Errorf("forecast: horizon must be positive, got %d", horizon)
	}
	if f == nil {
		f = AutoARIMA{}
	}
	confidence := DefaultConfidence
	if len(opts) > 0 && opts[0].Confidence > 0 {
		confidence = opts[0].Confidence
	}

	model, err := f.Fit(ctx, series)
	if err != nil {
		return nil, fmt.Errorf("forecast: fit: %w", err)
	}

	dates := series.FutureDates(horizon)
	result := &Result{
		InSample: model.InSample(),
		Model:    model.Description(),
	}

	var values []float64
	if im, ok := model.(IntervalModel); ok {
		fc, err := im.PredictWithInterval(horizon, confidence)
		if err != nil {
			return nil, fmt.Errorf("forecast: predict: %w", err)
		}
		values = fc.Mean
		result.Lower = &timeseries.Series{Timestamps: dates, Values: fc.Lower, Name: "lower"}
		result.Upper = &timeseries.Series{Timestamps: dates, Values: fc.Upper, Name: "upper"}
	} else {
		values, err = model.Predict(horizon)
		if err != nil {
			return nil, fmt.Errorf("forecast: predict: %w", err)
		}
	}
	if len(values) != horizon {
		return nil, fmt.Errorf("forecast: model returned %d values for horizon %d", len(values), horizon)
	}

	result.Forecast, err = timeseries.NewWithTimestamps(dates, values)
	if err != nil {
		return nil, err
	}
	result.Forecast.Name = "forecast"

	if s, ok := model.(interface{ Summary() *arima.Summary }); ok {
		result.Diagnostics = s.Summary()
	}

	return result, nil
}

// Decompose splits series into trend, seasonal and residual components.
// A period of zero is inferred from the sampling frequency (daily data
// gives a weekly period of 7).
func Decompose(series *timeseries.Series, model stats.Model, period int) (*stats.DecompositionResult, error) {
	if series.IsEmpty() {
		return nil, timeseries.ErrNoData
	}
	if period <= 0 {
		freq, err := timeseries.InferFrequency(series)
		if err != nil {
			return nil, fmt.Errorf("forecast: decomposition period: %w", err)
		}
		period = freq.SeasonalPeriod()
		if period < 2 {
			return nil, fmt.Errorf("forecast: %s data has no seasonal period: %w", freq, timeseries.ErrUnknownFrequency)
		}
	}

	result, err := stats.Decompose(series, period, model)
	if err != nil {
		return nil, fmt.Errorf("forecast: decompose: %w", err)
	}
	return result, nil
}

// IsConvergence reports whether err comes from a model search in which no
// candidate converged.
func IsConvergence(err error) bool {
	return errors.Is(err, autoarima.ErrNoConvergence)
}
