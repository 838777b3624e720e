// Package arima implements (seasonal) AutoRegressive Integrated Moving Average
// models.
//
// An ARIMA(p,d,q)(P,D,Q)[m] model combines:
//   - AR(p) and seasonal AR(P) terms at lags 1..p and m..Pm
//   - d first differences and D seasonal differences at lag m
//   - MA(q) and seasonal MA(Q) terms
//
// Coefficients are estimated by conditional sum of squares with a
// Nelder-Mead search, each coefficient bounded inside (-1, 1).
//
// # Basic Usage
//
//	model := arima.New(1, 1, 0)
//	if err := model.Fit(series); err != nil {
//	    return err
//	}
//	forecasts, _ := model.Predict(15)
//	inSample := model.InSample() // aligned with series' dates
//
// Seasonal models use the full order:
//
//	model := arima.NewSeasonal(arima.Order{P: 1, D: 1, SQ: 1, M: 7})
//
// # Prediction Intervals
//
//	f, _ := model.PredictWithInterval(15, 0.95)
//	// f.Mean, f.Lower, f.Upper
//
// For automatic order selection, use the autoarima package.
package arima
