// Package growth derives day-over-day deltas and growth rates from a
// cumulative daily count.
package growth

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/sartorproj/covidtrend/timeseries"
)

// Window bounds an average growth rate computation. A zero Start resolves
// to the first date with a positive value, a zero End to the last date.
type Window struct {
	Start time.Time
	End   time.Time
}

// DailyDelta returns value[i] - value[i-1] on the same dates, with a zero
// first element.
func DailyDelta(s *timeseries.Series) (*timeseries.Series, error) {
	if s.IsEmpty() {
		return nil, timeseries.ErrNoData
	}

	delta := make([]float64, s.Len())
	for i := 1; i < s.Len(); i++ {
		delta[i] = s.Values[i] - s.Values[i-1]
	}
	return s.WithValues("new_"+s.Name, delta), nil
}

// resolveStart returns the index of start, or of the first positive value
// when start is zero.
func resolveStart(s *timeseries.Series, start time.Time) (int, error) {
	if start.IsZero() {
		i, ok := s.FirstPositive()
		if !ok {
			return 0, fmt.Errorf("%w: series has no positive value", ErrDivision)
		}
		return i, nil
	}
	i, ok := s.IndexOf(start)
	if !ok {
		return 0, &LookupError{Date: timeseries.Day(start)}
	}
	return i, nil
}

// AverageGrowthRate returns the compound daily growth rate between the
// window dates, in percent: ((present/past)^(1/days) - 1) * 100.
func AverageGrowthRate(s *timeseries.Series, w Window) (float64, error) {
	if s.IsEmpty() {
		return 0, timeseries.ErrNoData
	}

	from, err := resolveStart(s, w.Start)
	if err != nil {
		return 0, err
	}
	to := s.Len() - 1
	if !w.End.IsZero() {
		var ok bool
		if to, ok = s.IndexOf(w.End); !ok {
			return 0, &LookupError{Date: timeseries.Day(w.End)}
		}
	}

	days := timeseries.DaysBetween(s.Timestamps[from], s.Timestamps[to])
	switch {
	case days == 0:
		return 0, fmt.Errorf("%w: empty window on %s", ErrDivision, s.Timestamps[from].Format(time.DateOnly))
	case days < 0:
		return 0, fmt.Errorf("growth: window ends %d days before it starts", -days)
	}

	past, present := s.Values[from], s.Values[to]
	if past == 0 {
		return 0, fmt.Errorf("%w: zero value on %s", ErrDivision, s.Timestamps[from].Format(time.DateOnly))
	}

	return (math.Pow(present/past, 1/float64(days)) - 1) * 100, nil
}

// DailyGrowthRate returns the day-over-day growth rates in percent from the
// day after start to the last date, keyed by date. A zero start resolves
// to the first positive value. The series must have one observation per
// calendar day from start on and no zero baselines; both are checked up
// front so the returned sequence cannot fail. The sequence is computed
// lazily and can be ranged over more than once.
func DailyGrowthRate(s *timeseries.Series, start time.Time) (iter.Seq2[time.Time, float64], error) {
	if s.IsEmpty() {
		return nil, timeseries.ErrNoData
	}

	from, err := resolveStart(s, start)
	if err != nil {
		return nil, err
	}

	if i, gap := s.FirstGap(from, s.Len()-1); gap {
		return nil, &GapError{After: s.Timestamps[i], Next: s.Timestamps[i+1]}
	}
	for i := from; i < s.Len()-1; i++ {
		if s.Values[i] == 0 {
			return nil, fmt.Errorf("%w: zero value on %s", ErrDivision, s.Timestamps[i].Format(time.DateOnly))
		}
	}

	return func(yield func(time.Time, float64) bool) {
		for i := from + 1; i < s.Len(); i++ {
			rate := (s.Values[i] - s.Values[i-1]) / s.Values[i-1] * 100
			if !yield(s.Timestamps[i], rate) {
				return
			}
		}
	}, nil
}

// DailyGrowthSeries materializes DailyGrowthRate as a series.
func DailyGrowthSeries(s *timeseries.Series, start time.Time) (*timeseries.Series, error) {
	rates, err := DailyGrowthRate(s, start)
	if err != nil {
		return nil, err
	}

	out := &timeseries.Series{Name: "growth_rate"}
	for date, rate := range rates {
		out.Timestamps = append(out.Timestamps, date)
		out.Values = append(out.Values, rate)
	}
	return out, nil
}

// RollingMean returns the trailing simple moving average over window
// observations. The first window-1 positions are NaN.
func RollingMean(s *timeseries.Series, window int) (*timeseries.Series, error) {
	if s.IsEmpty() {
		return nil, timeseries.ErrNoData
	}
	if window < 1 {
		return nil, errors.New("growth: rolling window must be positive")
	}

	sma := trend.NewSmaWithPeriod[float64](window)
	averaged := helper.ChanToSlice(sma.Compute(helper.SliceToChan(s.Values)))

	values := make([]float64, s.Len())
	idle := s.Len() - len(averaged)
	for i := range values {
		if i < idle {
			values[i] = math.NaN()
			continue
		}
		values[i] = averaged[i-idle]
	}
	return s.WithValues(fmt.Sprintf("%s_sma%d", s.Name, window), values), nil
}
