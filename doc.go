// Package covidtrend analyzes and forecasts COVID-19 case counts for a single
// region from a public line-list dataset.
//
// The analysis is a linear pipeline of four stages, each a pure function of
// its inputs:
//
//   - Load: read the CSV line list, parse its date columns and normalize
//     column names ("Country/Region" becomes "countryregion")
//   - Select: filter to one region and to the days a metric is positive
//   - Growth: daily deltas, the average growth rate over a date window and
//     the day-over-day growth rates
//   - Decompose and forecast: classical seasonal decomposition and an ARIMA
//     model chosen by an information-criterion search
//
// # Quick Start
//
//	table, err := dataset.Load("covid_19_data.csv", dataset.DefaultOptions())
//	confirmed, err := table.Select(dataset.Selection{Region: "Brazil", Metric: "confirmed"})
//
//	rate, err := growth.AverageGrowthRate(confirmed, growth.Window{})
//	decomp, err := forecast.Decompose(confirmed, stats.Additive, 0)
//	result, err := forecast.FitForecast(ctx, confirmed, 15, nil)
//
// The pipeline package runs every stage from a config.Config and writes the
// charts, workbook and JSON summary; cmd/covidtrend drives it from the
// command line.
//
// # Packages
//
//   - timeseries: date-indexed series, frequency inference and CSV export
//   - dataset: line-list loading and per-region series selection
//   - growth: daily deltas, growth rates and rolling means
//   - stats: stationarity tests, information criteria, Ljung-Box and
//     classical decomposition
//   - arima: (seasonal) ARIMA estimation and forecasting
//   - autoarima: automatic order selection
//   - forecast: the Forecaster interface, FitForecast and Decompose
//   - chart, report: charts, spreadsheets and summaries
//   - config, logging, pipeline: the application layer
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package covidtrend
