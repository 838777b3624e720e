package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/covidtrend/autoarima"
	"github.com/sartorproj/covidtrend/stats"
	"github.com/sartorproj/covidtrend/timeseries"
)

var start = time.Date(2020, time.February, 26, 0, 0, 0, 0, time.UTC)

func cumulative(n int) *timeseries.Series {
	rng := rand.New(rand.NewSource(21))
	values := make([]float64, n)
	values[0] = 1
	for i := 1; i < n; i++ {
		values[i] = values[i-1] + 10 + float64(i) + 3*rng.NormFloat64()
	}
	return timeseries.NewDaily(start, values)
}

type constModel struct {
	series *timeseries.Series
	value  float64
}

func (m constModel) Predict(h int) ([]float64, error) {
	out := make([]float64, h)
	for i := range out {
		out[i] = m.value
	}
	return out, nil
}

func (m constModel) InSample() *timeseries.Series {
	return m.series.WithValues("fitted", make([]float64, m.series.Len()))
}

func (m constModel) Description() string { return "const" }

func TestFitForecastDates(t *testing.T) {
	series := cumulative(60)

	last := ForecasterFunc(func(_ context.Context, s *timeseries.Series) (Model, error) {
		return constModel{series: s, value: s.Values[s.Len()-1]}, nil
	})

	result, err := FitForecast(context.Background(), series, 15, last)
	require.NoError(t, err)

	require.Equal(t, 15, result.Forecast.Len())
	assert.Equal(t, "const", result.Model)
	assert.Nil(t, result.Lower)
	assert.Nil(t, result.Diagnostics)

	prev := series.End()
	for _, ts := range result.Forecast.Timestamps {
		assert.Equal(t, 1, timeseries.DaysBetween(prev, ts))
		prev = ts
	}
	assert.Equal(t, series.Timestamps, result.InSample.Timestamps)
}

func TestFitForecastAutoARIMA(t *testing.T) {
	series := cumulative(80)

	config := autoarima.DefaultConfig()
	config.MaxP = 2
	config.MaxQ = 2

	result, err := FitForecast(context.Background(), series, 15, AutoARIMA{Config: config})
	require.NoError(t, err)

	assert.Equal(t, 15, result.Forecast.Len())
	assert.Equal(t, series.End().AddDate(0, 0, 1), result.Forecast.Start())
	assert.Equal(t, series.End().AddDate(0, 0, 15), result.Forecast.End())
	assert.Equal(t, series.Len(), result.InSample.Len())
	assert.Contains(t, result.Model, "ARIMA(")

	require.NotNil(t, result.Lower)
	require.NotNil(t, result.Upper)
	for i := range result.Forecast.Values {
		assert.LessOrEqual(t, result.Lower.Values[i], result.Forecast.Values[i])
		assert.GreaterOrEqual(t, result.Upper.Values[i], result.Forecast.Values[i])
	}
	require.NotNil(t, result.Diagnostics)

	// cumulative counts keep growing
	assert.Greater(t, result.Forecast.Values[14], series.Values[series.Len()-1])
}

func TestFitForecastErrors(t *testing.T) {
	ctx := context.Background()

	_, err := FitForecast(ctx, timeseries.New(nil), 5, nil)
	assert.ErrorIs(t, err, timeseries.ErrNoData)

	_, err = FitForecast(ctx, cumulative(30), 0, nil)
	assert.Error(t, err)

	_, err = FitForecast(ctx, timeseries.NewDaily(start, []float64{1, 2, 3, 5, 8}), 5, nil)
	require.Error(t, err)
	assert.True(t, IsConvergence(err))
	var convErr *autoarima.ConvergenceError
	assert.True(t, errors.As(err, &convErr))

	failing := ForecasterFunc(func(context.Context, *timeseries.Series) (Model, error) {
		return nil, context.DeadlineExceeded
	})
	_, err = FitForecast(ctx, cumulative(30), 5, failing)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecomposeInfersWeeklyPeriod(t *testing.T) {
	values := make([]float64, 70)
	for i := range values {
		values[i] = 50 + float64(i) + 8*math.Sin(2*math.Pi*float64(i%7)/7)
	}
	series := timeseries.NewDaily(start, values)

	result, err := Decompose(series, stats.Additive, 0)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Period)
	assert.Equal(t, series.Values, result.Observed.Values)
	assert.True(t, math.IsNaN(result.Trend.Values[0]))
}

func TestDecomposeErrors(t *testing.T) {
	_, err := Decompose(timeseries.New(nil), stats.Additive, 0)
	assert.ErrorIs(t, err, timeseries.ErrNoData)

	_, err = Decompose(timeseries.NewDaily(start, []float64{1, 2, 3, 4, 5}), stats.Additive, 0)
	assert.ErrorIs(t, err, stats.ErrInsufficientData)

	irregular, err := timeseries.NewWithTimestamps(
		[]time.Time{start, start.AddDate(0, 0, 3), start.AddDate(0, 0, 8)},
		[]float64{1, 2, 3},
	)
	require.NoError(t, err)
	_, err = Decompose(irregular, stats.Additive, 0)
	assert.ErrorIs(t, err, timeseries.ErrUnknownFrequency)
}
