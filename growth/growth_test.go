package growth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/covidtrend/timeseries"
)

var d0 = time.Date(2020, time.February, 26, 0, 0, 0, 0, time.UTC)

func daily(values ...float64) *timeseries.Series {
	s := timeseries.NewDaily(d0, values)
	s.Name = "confirmed"
	return s
}

func TestDailyDelta(t *testing.T) {
	s := daily(100, 150, 225)

	delta, err := DailyDelta(s)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 50, 75}, delta.Values)
	assert.Equal(t, s.Timestamps, delta.Timestamps)
	assert.Equal(t, "new_confirmed", delta.Name)

	single, err := DailyDelta(daily(7))
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, single.Values)

	_, err = DailyDelta(timeseries.New(nil))
	assert.ErrorIs(t, err, timeseries.ErrNoData)
}

func TestAverageGrowthRate(t *testing.T) {
	s := daily(100, 150, 225)

	rate, err := AverageGrowthRate(s, Window{Start: d0, End: d0.AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rate, 1e-9)

	defaulted, err := AverageGrowthRate(s, Window{})
	require.NoError(t, err)
	assert.Equal(t, rate, defaulted)
}

func TestAverageGrowthRateSkipsLeadingZeros(t *testing.T) {
	s := daily(0, 0, 10, 20, 40)

	rate, err := AverageGrowthRate(s, Window{})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rate, 1e-9)
}

func TestAverageGrowthRateScaleInvariant(t *testing.T) {
	s := daily(3, 5, 9, 14, 30, 41, 77)
	w := Window{Start: d0.AddDate(0, 0, 1), End: d0.AddDate(0, 0, 5)}

	base, err := AverageGrowthRate(s, w)
	require.NoError(t, err)

	for _, k := range []float64{2, 10, 0.5} {
		scaled, err := AverageGrowthRate(s.Scale(k), w)
		require.NoError(t, err)
		assert.InDelta(t, base, scaled, 1e-9, "scale %g", k)
	}
}

func TestAverageGrowthRateErrors(t *testing.T) {
	s := daily(100, 150, 225)

	_, err := AverageGrowthRate(s, Window{Start: d0, End: d0})
	assert.ErrorIs(t, err, ErrDivision)

	_, err = AverageGrowthRate(daily(0, 0), Window{})
	assert.ErrorIs(t, err, ErrDivision)

	_, err = AverageGrowthRate(daily(0, 5, 10), Window{Start: d0})
	assert.ErrorIs(t, err, ErrDivision)

	missing := d0.AddDate(0, 0, 10)
	_, err = AverageGrowthRate(s, Window{End: missing})
	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, missing, lookupErr.Date)

	_, err = AverageGrowthRate(s, Window{Start: d0.AddDate(0, 0, -1)})
	assert.True(t, errors.As(err, &lookupErr))

	_, err = AverageGrowthRate(s, Window{Start: d0.AddDate(0, 0, 2), End: d0})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDivision)

	_, err = AverageGrowthRate(timeseries.New(nil), Window{})
	assert.ErrorIs(t, err, timeseries.ErrNoData)
}

func TestDailyGrowthRate(t *testing.T) {
	s := daily(0, 100, 150, 225, 225)

	rates, err := DailyGrowthRate(s, time.Time{})
	require.NoError(t, err)

	var dates []time.Time
	var values []float64
	for date, rate := range rates {
		dates = append(dates, date)
		values = append(values, rate)
	}

	// start resolves to the first positive value, so the length is
	// last_date - start_date
	assert.Equal(t, []time.Time{d0.AddDate(0, 0, 2), d0.AddDate(0, 0, 3), d0.AddDate(0, 0, 4)}, dates)
	assert.InDeltaSlice(t, []float64{50, 50, 0}, values, 1e-9)

	// ranging twice yields the same values
	again := 0
	for range rates {
		again++
	}
	assert.Equal(t, 3, again)

	// early break
	for date := range rates {
		assert.Equal(t, d0.AddDate(0, 0, 2), date)
		break
	}
}

func TestDailyGrowthRateExplicitStart(t *testing.T) {
	s := daily(100, 150, 225, 450)

	series, err := DailyGrowthSeries(s, d0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 100}, series.Values, 1e-9)
	assert.Equal(t, d0.AddDate(0, 0, 2), series.Start())
}

func TestDailyGrowthRateErrors(t *testing.T) {
	gappy, err := timeseries.NewWithTimestamps(
		[]time.Time{d0, d0.AddDate(0, 0, 1), d0.AddDate(0, 0, 3)},
		[]float64{1, 2, 4},
	)
	require.NoError(t, err)

	_, err = DailyGrowthRate(gappy, time.Time{})
	var gapErr *GapError
	require.True(t, errors.As(err, &gapErr))
	assert.Equal(t, d0.AddDate(0, 0, 1), gapErr.After)
	assert.Equal(t, d0.AddDate(0, 0, 3), gapErr.Next)

	_, err = DailyGrowthRate(daily(5, 0, 3), time.Time{})
	assert.ErrorIs(t, err, ErrDivision)

	_, err = DailyGrowthRate(daily(5, 6), d0.AddDate(0, 0, 7))
	var lookupErr *LookupError
	assert.True(t, errors.As(err, &lookupErr))

	_, err = DailyGrowthSeries(timeseries.New(nil), time.Time{})
	assert.ErrorIs(t, err, timeseries.ErrNoData)
}

func TestRollingMean(t *testing.T) {
	s := daily(1, 2, 3, 4, 5, 6)

	avg, err := RollingMean(s, 3)
	require.NoError(t, err)
	require.Equal(t, s.Len(), avg.Len())
	assert.Equal(t, s.Timestamps, avg.Timestamps)
	assert.Equal(t, "confirmed_sma3", avg.Name)

	assert.True(t, math.IsNaN(avg.Values[0]))
	assert.True(t, math.IsNaN(avg.Values[1]))
	assert.InDeltaSlice(t, []float64{2, 3, 4, 5}, avg.Values[2:], 1e-9)

	_, err = RollingMean(s, 0)
	assert.Error(t, err)
}
