// Package stats provides statistical tests and functions for time series analysis.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/covidtrend/timeseries"
)

// ACF calculates the Autocorrelation Function for the given series.
// Returns ACF values for lags 0 to maxLag, or nil for a constant series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(series.Values, nil)
	centered := make([]float64, n)
	for i, v := range series.Values {
		centered[i] = v - mean
	}

	variance := 0.0
	for _, c := range centered {
		variance += c * c
	}
	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += centered[i] * centered[i-k]
		}
		acf[k] = sum / variance
	}

	return acf
}
