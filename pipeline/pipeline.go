// Package pipeline runs the analysis stages in order: load the line list,
// select the region's series, derive growth rates, decompose and forecast,
// then write the artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sartorproj/covidtrend/autoarima"
	"github.com/sartorproj/covidtrend/config"
	"github.com/sartorproj/covidtrend/dataset"
	"github.com/sartorproj/covidtrend/forecast"
	"github.com/sartorproj/covidtrend/growth"
	"github.com/sartorproj/covidtrend/logging"
	"github.com/sartorproj/covidtrend/report"
	"github.com/sartorproj/covidtrend/stats"
	"github.com/sartorproj/covidtrend/timeseries"
)

// Stage names one step of a run.
type Stage string

const (
	StageLoad      Stage = "load"
	StageSelect    Stage = "select"
	StageGrowth    Stage = "growth"
	StageDecompose Stage = "decompose"
	StageForecast  Stage = "forecast"
	StageOutput    Stage = "output"
)

// StageError records the failure of one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Options switch stages off. Load, selection and growth always run.
type Options struct {
	SkipDecomposition bool
	SkipForecast      bool
	SkipOutput        bool

	// Forecaster overrides the configured auto ARIMA search.
	Forecaster forecast.Forecaster
}

// Result holds everything one run derived. Fields of stages that failed or
// were skipped are nil.
type Result struct {
	Region string
	Metric string // primary metric, the first selected one

	Series      map[string]*timeseries.Series // selected series by metric
	NewCases    *timeseries.Series
	Smoothed    *timeseries.Series // rolling mean of NewCases
	DailyGrowth *timeseries.Series

	// AverageGrowthRate is in percent; NaN when the growth stage failed.
	AverageGrowthRate float64

	Decompositions map[string]*stats.DecompositionResult
	Forecast       *forecast.Result

	Summary *report.Summary
	Files   []string

	Errors []*StageError
}

// Err joins the recorded stage errors, or returns nil when every stage
// succeeded.
func (r *Result) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// StageErr joins the recorded errors of the given stages only.
func (r *Result) StageErr(stages ...Stage) error {
	var errs []error
	for _, e := range r.Errors {
		if slices.Contains(stages, e.Stage) {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// Primary returns the series of the primary metric.
func (r *Result) Primary() *timeseries.Series {
	return r.Series[r.Metric]
}

type run struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	opts   Options
	result *Result
}

// Run executes the pipeline described by cfg. Load and selection errors of
// the primary metric abort the run and are returned; failures of later
// stages are recorded in Result.Errors and the remaining stages still run.
func Run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts ...Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: invalid config: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}

	r := &run{
		cfg: cfg,
		log: log.WithField("region", cfg.Selection.Region),
		result: &Result{
			Region:            cfg.Selection.Region,
			Series:            make(map[string]*timeseries.Series),
			Decompositions:    make(map[string]*stats.DecompositionResult),
			AverageGrowthRate: math.NaN(),
		},
	}
	if len(opts) > 0 {
		r.opts = opts[0]
	}

	table, err := r.load()
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	if err := r.selectSeries(table); err != nil {
		return nil, &StageError{Stage: StageSelect, Err: err}
	}

	r.growth()
	if !r.opts.SkipDecomposition {
		r.decompose()
	}
	if !r.opts.SkipForecast {
		r.forecast(ctx)
	}

	r.result.Summary = r.summary()

	if !r.opts.SkipOutput {
		r.output()
		// pick up failures of the workbook and JSON writes
		r.result.Summary.Errors = r.errorStrings()
	}

	return r.result, nil
}

func (r *run) stage(s Stage) logrus.FieldLogger {
	return r.log.WithField("stage", string(s))
}

func (r *run) fail(s Stage, err error) {
	r.stage(s).WithError(err).Warn("stage failed")
	r.result.Errors = append(r.result.Errors, &StageError{Stage: s, Err: err})
}

func (r *run) errorStrings() []string {
	if len(r.result.Errors) == 0 {
		return nil
	}
	out := make([]string, len(r.result.Errors))
	for i, e := range r.result.Errors {
		out[i] = e.Error()
	}
	return out
}

func (r *run) load() (*dataset.Table, error) {
	start := time.Now()
	table, err := dataset.Load(r.cfg.Dataset.Path, dataset.Options{
		DateColumns:    r.cfg.Dataset.DateColumns,
		NumericColumns: r.cfg.Dataset.NumericColumns,
	})
	if err != nil {
		return nil, err
	}
	r.stage(StageLoad).WithFields(logrus.Fields{
		"path":     r.cfg.Dataset.Path,
		"rows":     table.Len(),
		"duration": time.Since(start),
	}).Info("dataset loaded")
	return table, nil
}

// metrics lists the selected metrics followed by the decomposition and
// forecast metrics when they were not selected already.
func (r *run) metrics() []string {
	var metrics []string
	add := func(m string) {
		m = dataset.NormalizeName(m)
		if m != "" && !slices.Contains(metrics, m) {
			metrics = append(metrics, m)
		}
	}
	for _, m := range r.cfg.Selection.Metrics {
		add(m)
	}
	add(r.cfg.Decomposition.Metric)
	add(r.cfg.Forecast.Metric)
	return metrics
}

func (r *run) selectSeries(table *dataset.Table) error {
	metrics := r.metrics()
	r.result.Metric = metrics[0]

	for i, metric := range metrics {
		s, err := table.Select(dataset.Selection{
			RegionColumn: r.cfg.Dataset.RegionColumn,
			Region:       r.cfg.Selection.Region,
			DateColumn:   r.cfg.Dataset.DateColumn,
			Metric:       metric,
		})
		if err != nil {
			if i == 0 {
				return err
			}
			r.fail(StageSelect, err)
			continue
		}
		r.result.Series[metric] = s
		r.stage(StageSelect).WithFields(logrus.Fields{
			"metric":       metric,
			"observations": s.Len(),
			"first":        s.Start().Format(time.DateOnly),
			"last":         s.End().Format(time.DateOnly),
		}).Info("series selected")
	}
	return nil
}

func (r *run) growth() {
	primary := r.result.Primary()
	log := r.stage(StageGrowth)

	newCases, err := growth.DailyDelta(primary)
	if err != nil {
		r.fail(StageGrowth, fmt.Errorf("daily delta: %w", err))
	} else {
		r.result.NewCases = newCases
		if r.result.Smoothed, err = growth.RollingMean(newCases, r.cfg.Growth.RollingWindow); err != nil {
			r.fail(StageGrowth, fmt.Errorf("rolling mean: %w", err))
		}
	}

	start, end, err := r.cfg.Growth.Window()
	if err != nil {
		r.fail(StageGrowth, err)
		return
	}

	rate, err := growth.AverageGrowthRate(primary, growth.Window{Start: start, End: end})
	if err != nil {
		r.fail(StageGrowth, fmt.Errorf("average growth rate: %w", err))
	} else {
		r.result.AverageGrowthRate = rate
		log.WithField("rate_pct", rate).Info("average growth rate computed")
	}

	daily, err := growth.DailyGrowthSeries(primary, start)
	if err != nil {
		r.fail(StageGrowth, fmt.Errorf("daily growth rate: %w", err))
		return
	}
	r.result.DailyGrowth = daily
	log.WithField("days", daily.Len()).Debug("daily growth rates computed")
}

func (r *run) decompose() {
	model, err := stats.ParseModel(r.cfg.Decomposition.Model)
	if err != nil {
		r.fail(StageDecompose, err)
		return
	}

	targets := []*timeseries.Series{r.result.Series[dataset.NormalizeName(r.cfg.Decomposition.Metric)]}
	if r.result.NewCases != nil {
		targets = append(targets, r.result.NewCases)
	}

	for _, s := range targets {
		if s == nil {
			continue
		}
		d, err := forecast.Decompose(s, model, r.cfg.Decomposition.Period)
		if err != nil {
			r.fail(StageDecompose, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		r.result.Decompositions[s.Name] = d
		r.stage(StageDecompose).WithFields(logrus.Fields{
			"series": s.Name,
			"model":  d.Model,
			"period": d.Period,
		}).Info("series decomposed")
	}
}

// searchConfig maps the forecast section onto the model search bounds.
func (r *run) searchConfig() *autoarima.Config {
	f := r.cfg.Forecast
	return &autoarima.Config{
		MaxP:        f.MaxP,
		MaxD:        f.MaxD,
		MaxQ:        f.MaxQ,
		MaxSP:       f.MaxSP,
		MaxSD:       f.MaxSD,
		MaxSQ:       f.MaxSQ,
		Seasonal:    f.Seasonal,
		SeasonalM:   f.SeasonalPeriod,
		Stepwise:    f.Stepwise,
		Criterion:   f.Criterion,
		StationTest: f.StationTest,
		Logger:      r.stage(StageForecast),
	}
}

func (r *run) forecastMetric() string {
	return dataset.NormalizeName(r.cfg.Forecast.Metric)
}

func (r *run) forecast(ctx context.Context) {
	metric := r.forecastMetric()
	s := r.result.Series[metric]
	if s == nil {
		r.fail(StageForecast, fmt.Errorf("%s: %w", metric, timeseries.ErrNoData))
		return
	}

	if r.cfg.Forecast.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Forecast.Timeout)
		defer cancel()
	}

	f := r.opts.Forecaster
	if f == nil {
		f = forecast.AutoARIMA{Config: r.searchConfig()}
	}

	start := time.Now()
	result, err := forecast.FitForecast(ctx, s, r.cfg.Forecast.Horizon, f, forecast.Options{Confidence: r.cfg.Forecast.Confidence})
	if err != nil {
		if forecast.IsConvergence(err) {
			f := r.cfg.Forecast
			err = fmt.Errorf("%w (search bounds p<=%d d<=%d q<=%d)", err, f.MaxP, f.MaxD, f.MaxQ)
		}
		r.fail(StageForecast, err)
		return
	}
	r.result.Forecast = result

	fields := logrus.Fields{
		"model":    result.Model,
		"horizon":  r.cfg.Forecast.Horizon,
		"duration": time.Since(start),
	}
	if d := result.Diagnostics; d != nil {
		fields["aic"] = d.AIC
	}
	r.stage(StageForecast).WithFields(fields).Info("forecast fitted")
}

func (r *run) summary() *report.Summary {
	res := r.result
	primary := res.Primary()

	s := &report.Summary{
		Region:            res.Region,
		Metric:            res.Metric,
		Start:             primary.Start().Format(time.DateOnly),
		End:               primary.End().Format(time.DateOnly),
		Observations:      primary.Len(),
		LastValue:         primary.Values[primary.Len()-1],
		AverageGrowthRate: report.Round(res.AverageGrowthRate, 2),
	}
	if d := res.DailyGrowth; !d.IsEmpty() {
		s.LastDailyGrowth = report.Round(d.Values[d.Len()-1], 2)
	}

	var decomposed []string
	for _, name := range slices.Sorted(maps.Keys(res.Decompositions)) {
		d := res.Decompositions[name]
		decomposed = append(decomposed, fmt.Sprintf("%s %s/%d", name, d.Model, d.Period))
	}
	if len(decomposed) > 0 {
		s.Decomposition = strings.Join(decomposed, ", ")
	}

	if fc := res.Forecast; fc != nil {
		s.Model = fc.Model
		s.Horizon = fc.Forecast.Len()
		s.ForecastEnd = fc.Forecast.End().Format(time.DateOnly)
		s.ForecastLast = report.Round(fc.Forecast.Values[fc.Forecast.Len()-1], 0)
		if d := fc.Diagnostics; d != nil {
			s.AIC = report.Round(d.AIC, 2)
			if d.LjungBox != nil {
				s.LjungBoxPValue = report.Round(d.LjungBox.PValue, 4)
			}
		}
	}

	s.Errors = r.errorStrings()
	return s
}
