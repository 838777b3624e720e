// Package stats provides the statistical building blocks used by the
// decomposition and model-selection stages.
//
// # Stationarity Tests
//
//	adf := stats.ADF(series, 0)          // H0: unit root
//	kpss := stats.KPSS(series, "c", 0)   // H0: level stationary
//
// # Differencing Analysis
//
//	d := stats.NDiffs(series, 2, "kpss")
//	sd := stats.NSDiffs(series, 7, 1)
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, 10, p+q)
//
// # Classical Decomposition
//
//	decomp, err := stats.Decompose(series, 7, stats.Additive)
//	// decomp.Observed, decomp.Trend, decomp.Seasonal, decomp.Residual
//
// Trend and residual are NaN at the edges where the centered moving
// average window does not fit.
package stats
