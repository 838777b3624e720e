// Package autoarima implements automatic ARIMA model selection.
//
// The differencing orders are chosen first (seasonal strength for D, KPSS
// and ADF for d), then the AR and MA orders are searched inside the
// configured bounds, minimising AIC, AICc or BIC.
//
// # Basic Usage
//
//	config := autoarima.DefaultConfig()
//	result, err := autoarima.AutoARIMA(ctx, series, config)
//	if err != nil {
//	    return err // *autoarima.ConvergenceError when nothing fits
//	}
//	fmt.Println(result.Order, result.Criterion)
//	forecasts, _ := result.Predict(15)
//
// # Seasonal Model Selection
//
//	config.Seasonal = true
//	config.SeasonalM = 7 // daily data with a weekly cycle
//
// # Search Methods
//
//   - Stepwise (default): Hyndman-Khandakar neighbourhood search
//   - Grid: every order inside the bounds (Stepwise=false)
//
// Set Config.Logger to trace every candidate at debug level.
package autoarima
