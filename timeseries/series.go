// Package timeseries provides the date-indexed series type shared by every stage.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoData is returned when an operation needs at least one observation.
var ErrNoData = errors.New("timeseries: no observations")

// Epoch is the first date assigned by New to an un-dated slice of values.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Series represents a time series with timestamps and values.
// Timestamps are strictly increasing and have no duplicate calendar dates.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a daily series from values, starting at Epoch.
func New(values []float64) *Series {
	return NewDaily(Epoch, values)
}

// NewDaily creates a series of consecutive calendar days starting at start.
func NewDaily(start time.Time, values []float64) *Series {
	start = Day(start)
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = start.AddDate(0, 0, i)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	for i := 1; i < len(timestamps); i++ {
		if !Day(timestamps[i]).After(Day(timestamps[i-1])) {
			return nil, fmt.Errorf("timestamps must be strictly increasing: %s follows %s",
				timestamps[i].Format(time.DateOnly), timestamps[i-1].Format(time.DateOnly))
		}
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// IsEmpty reports whether the series has no observations.
func (s *Series) IsEmpty() bool {
	return s == nil || len(s.Values) == 0
}

// Start returns the first date of the series.
func (s *Series) Start() time.Time {
	if s.IsEmpty() {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// End returns the last date of the series.
func (s *Series) End() time.Time {
	if s.IsEmpty() {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// IndexOf returns the position of the observation dated on the same calendar day as date.
func (s *Series) IndexOf(date time.Time) (int, bool) {
	target := Day(date)
	i := sort.Search(len(s.Timestamps), func(i int) bool {
		return !Day(s.Timestamps[i]).Before(target)
	})
	if i < len(s.Timestamps) && Day(s.Timestamps[i]).Equal(target) {
		return i, true
	}
	return -1, false
}

// Lookup returns the value observed on date. There is no interpolation.
func (s *Series) Lookup(date time.Time) (float64, bool) {
	i, ok := s.IndexOf(date)
	if !ok {
		return 0, false
	}
	return s.Values[i], true
}

// FirstPositive returns the position of the first value greater than zero.
func (s *Series) FirstPositive() (int, bool) {
	for i, v := range s.Values {
		if v > 0 {
			return i, true
		}
	}
	return -1, false
}

// FirstGap returns the first position i in [from, to) whose successor is not
// exactly one calendar day later.
func (s *Series) FirstGap(from, to int) (int, bool) {
	if from < 0 {
		from = 0
	}
	if to > len(s.Timestamps)-1 {
		to = len(s.Timestamps) - 1
	}
	for i := from; i < to; i++ {
		if DaysBetween(s.Timestamps[i], s.Timestamps[i+1]) != 1 {
			return i, true
		}
	}
	return -1, false
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_seasonal_diff")
}

func (s *Series) lagDiff(lag int, suffix string) *Series {
	if lag <= 0 || len(s.Values) <= lag {
		return &Series{Values: []float64{}, Timestamps: []time.Time{}, Name: s.Name + suffix}
	}

	result := make([]float64, len(s.Values)-lag)
	for i := lag; i < len(s.Values); i++ {
		result[i-lag] = s.Values[i] - s.Values[i-lag]
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) == len(s.Values) {
		copy(timestamps, s.Timestamps[lag:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + suffix,
	}
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Timestamps: []time.Time{}, Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// WithValues returns a series sharing s's dates with the given values and name.
func (s *Series) WithValues(name string, values []float64) *Series {
	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       name,
	}
}

// Scale returns a copy of the series with every value multiplied by k.
func (s *Series) Scale(k float64) *Series {
	out := s.Copy()
	floats.Scale(k, out.Values)
	return out
}
