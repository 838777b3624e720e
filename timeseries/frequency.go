package timeseries

import (
	"errors"
	"sort"
	"time"
)

// ErrUnknownFrequency is returned when the sampling interval of a series
// cannot be mapped to a calendar frequency.
var ErrUnknownFrequency = errors.New("timeseries: cannot infer frequency")

// Frequency is the sampling interval of a series.
type Frequency int

const (
	Unknown Frequency = iota
	Daily
	Weekly
	Monthly
	Quarterly
	Annual
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Annual:
		return "annual"
	default:
		return "unknown"
	}
}

// SeasonalPeriod returns the conventional number of observations per cycle:
// a week of days, a year of weeks, months or quarters.
func (f Frequency) SeasonalPeriod() int {
	switch f {
	case Daily:
		return 7
	case Weekly:
		return 52
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case Annual:
		return 1
	default:
		return 0
	}
}

// Advance returns t moved forward by n steps of f.
func (f Frequency) Advance(t time.Time, n int) time.Time {
	switch f {
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	case Monthly:
		return t.AddDate(0, n, 0)
	case Quarterly:
		return t.AddDate(0, 3*n, 0)
	case Annual:
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// InferFrequency infers the sampling frequency from the median spacing
// between consecutive dates.
func InferFrequency(s *Series) (Frequency, error) {
	if s.Len() < 2 || len(s.Timestamps) != s.Len() {
		return Unknown, ErrUnknownFrequency
	}

	gaps := make([]int, 0, len(s.Timestamps)-1)
	for i := 1; i < len(s.Timestamps); i++ {
		gaps = append(gaps, DaysBetween(s.Timestamps[i-1], s.Timestamps[i]))
	}
	sort.Ints(gaps)
	median := gaps[len(gaps)/2]

	switch {
	case median == 1:
		return Daily, nil
	case median == 7:
		return Weekly, nil
	case median >= 28 && median <= 31:
		return Monthly, nil
	case median >= 89 && median <= 92:
		return Quarterly, nil
	case median >= 365 && median <= 366:
		return Annual, nil
	default:
		return Unknown, ErrUnknownFrequency
	}
}

// FutureDates returns the n consecutive calendar days following the last date of s.
func (s *Series) FutureDates(n int) []time.Time {
	if n <= 0 {
		return nil
	}
	last := Day(s.End())
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = last.AddDate(0, 0, i+1)
	}
	return dates
}
