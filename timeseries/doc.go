// Package timeseries provides the date-indexed Series used by every stage of
// the analysis.
//
// A Series holds parallel Timestamps and Values slices. Dates are strictly
// increasing and carry no duplicate calendar days; every derived series is a
// new value, the input is never modified in place.
//
// # Creating a Series
//
//	s, err := timeseries.NewWithTimestamps(dates, values)
//
//	// Consecutive days from a start date
//	s := timeseries.NewDaily(start, []float64{100, 150, 225})
//
// # Lookup
//
// Values are addressed by calendar date, never interpolated:
//
//	v, ok := s.Lookup(date)
//	i, ok := s.IndexOf(date)
//
// # Frequency
//
//	freq, err := timeseries.InferFrequency(s) // Daily, Weekly, Monthly, ...
//	period := freq.SeasonalPeriod()           // 7 for daily data
//	next := s.FutureDates(15)                 // days after s.End()
//
// # Export
//
//	err := timeseries.SaveCSV("out.csv", confirmed, newCases)
package timeseries
