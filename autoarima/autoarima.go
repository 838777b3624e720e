// Package autoarima implements automatic ARIMA model selection.
package autoarima

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/sartorproj/covidtrend/arima"
	"github.com/sartorproj/covidtrend/stats"
	"github.com/sartorproj/covidtrend/timeseries"
)

// ErrNoConvergence is matched by every ConvergenceError.
var ErrNoConvergence = errors.New("autoarima: no candidate model converged")

// ConvergenceError is returned when no candidate in the search space could
// be fitted.
type ConvergenceError struct {
	Evaluated int   // candidates attempted
	Last      error // error of the last failed candidate
}

func (e *ConvergenceError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("autoarima: none of %d candidate models converged", e.Evaluated)
	}
	return fmt.Sprintf("autoarima: none of %d candidate models converged: %v", e.Evaluated, e.Last)
}

func (e *ConvergenceError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrNoConvergence}
	}
	return []error{ErrNoConvergence, e.Last}
}

// Config holds configuration for auto ARIMA search. The bounds fix the
// search space; the search itself is deterministic.
type Config struct {
	MaxP        int    // Maximum AR order (default: 5)
	MaxD        int    // Maximum differencing order (default: 2)
	MaxQ        int    // Maximum MA order (default: 5)
	MaxSP       int    // Maximum seasonal AR order (default: 2)
	MaxSD       int    // Maximum seasonal differencing order (default: 1)
	MaxSQ       int    // Maximum seasonal MA order (default: 2)
	Seasonal    bool   // Whether to consider seasonal models
	SeasonalM   int    // Seasonal period (required if Seasonal=true)
	Stepwise    bool   // Use stepwise search instead of exhaustive
	Criterion   string // "aic", "aicc" or "bic" (default: "aic")
	StationTest string // "adf" or "kpss" (default: "kpss")

	// Logger receives one debug entry per candidate. Nil disables tracing.
	Logger logrus.FieldLogger
}

// DefaultConfig returns the default auto ARIMA configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Seasonal:    false,
		Stepwise:    true,
		Criterion:   "aic",
		StationTest: "kpss",
	}
}

// Validate checks the search bounds and option names.
func (c *Config) Validate() error {
	if c.MaxP < 0 || c.MaxD < 0 || c.MaxQ < 0 || c.MaxSP < 0 || c.MaxSD < 0 || c.MaxSQ < 0 {
		return errors.New("autoarima: search bounds must not be negative")
	}
	if c.Seasonal && c.SeasonalM < 2 {
		return fmt.Errorf("autoarima: seasonal search needs a period of at least 2, got %d", c.SeasonalM)
	}
	switch c.Criterion {
	case "", "aic", "aicc", "bic":
	default:
		return fmt.Errorf("autoarima: unknown criterion %q", c.Criterion)
	}
	switch c.StationTest {
	case "", "kpss", "adf":
	default:
		return fmt.Errorf("autoarima: unknown stationarity test %q", c.StationTest)
	}
	return nil
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Result represents the result of auto ARIMA model selection.
type Result struct {
	Model *arima.Model
	Order arima.Order

	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	Criterion float64 // value of the configured criterion

	ModelsEvaluated int // candidates fitted successfully
	ModelsTried     int
}

// AutoARIMA selects the model order minimising the configured information
// criterion. The context is checked between candidate fits.
func AutoARIMA(ctx context.Context, series *timeseries.Series, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if series.IsEmpty() {
		return nil, timeseries.ErrNoData
	}

	s := &search{
		ctx:      ctx,
		series:   series,
		config:   config,
		log:      config.logger(),
		tried:    make(map[arima.Order]bool),
		bestCrit: math.Inf(1),
	}

	if config.Seasonal {
		s.m = config.SeasonalM
		s.sd = stats.NSDiffs(series, config.SeasonalM, config.MaxSD)
		s.maxSP, s.maxSQ = config.MaxSP, config.MaxSQ
	}

	base := series
	for i := 0; i < s.sd; i++ {
		base = base.SeasonalDiff(s.m)
	}
	if config.MaxD > 0 {
		s.d = stats.NDiffs(base, config.MaxD, config.StationTest)
	}

	s.log.WithFields(logrus.Fields{
		"d":        s.d,
		"sd":       s.sd,
		"period":   s.m,
		"stepwise": config.Stepwise,
	}).Debug("autoarima: differencing orders chosen")

	var err error
	if config.Stepwise {
		err = s.stepwise()
	} else {
		err = s.grid()
	}
	if err != nil {
		return nil, fmt.Errorf("autoarima: search interrupted after %d models: %w", s.attempts, err)
	}

	if s.best == nil {
		return nil, &ConvergenceError{Evaluated: s.attempts, Last: s.lastErr}
	}

	return &Result{
		Model:           s.best,
		Order:           s.best.Order,
		AIC:             s.best.AIC,
		AICc:            s.best.AICc,
		BIC:             s.best.BIC,
		LogLik:          s.best.LogLik,
		Criterion:       s.bestCrit,
		ModelsEvaluated: s.fitted,
		ModelsTried:     s.attempts,
	}, nil
}

type search struct {
	ctx    context.Context
	series *timeseries.Series
	config *Config
	log    logrus.FieldLogger

	d, sd, m     int
	maxSP, maxSQ int

	tried    map[arima.Order]bool
	best     *arima.Model
	bestCrit float64
	attempts int
	fitted   int
	lastErr  error
}

type candidate struct {
	p, q, sp, sq int
}

func (s *search) order(c candidate) arima.Order {
	o := arima.Order{P: c.p, D: s.d, Q: c.q}
	if s.m > 1 {
		o.SP, o.SD, o.SQ, o.M = c.sp, s.sd, c.sq, s.m
	}
	return o
}

func (s *search) inBounds(c candidate) bool {
	return c.p >= 0 && c.p <= s.config.MaxP &&
		c.q >= 0 && c.q <= s.config.MaxQ &&
		c.sp >= 0 && c.sp <= s.maxSP &&
		c.sq >= 0 && c.sq <= s.maxSQ
}

// try fits one candidate and reports whether it became the best so far.
func (s *search) try(c candidate) (bool, error) {
	if err := s.ctx.Err(); err != nil {
		return false, err
	}
	if !s.inBounds(c) {
		return false, nil
	}
	o := s.order(c)
	if s.tried[o] {
		return false, nil
	}
	s.tried[o] = true
	s.attempts++

	model := arima.NewSeasonal(o)
	if err := model.Fit(s.series); err != nil {
		s.lastErr = err
		s.log.WithField("order", o.String()).WithError(err).Debug("autoarima: candidate failed")
		return false, nil
	}
	s.fitted++

	ic := stats.InformationCriteria{AIC: model.AIC, AICc: model.AICc, BIC: model.BIC, LogLik: model.LogLik}
	crit := ic.Select(s.config.Criterion)

	s.log.WithFields(logrus.Fields{
		"order":     o.String(),
		"criterion": crit,
	}).Debug("autoarima: candidate fitted")

	if math.IsNaN(crit) || crit >= s.bestCrit {
		return false, nil
	}
	s.best = model
	s.bestCrit = crit
	return true, nil
}

// stepwise runs the Hyndman-Khandakar neighbourhood search.
func (s *search) stepwise() error {
	starts := []candidate{
		{2, 2, 1, 1},
		{0, 0, 0, 0},
		{1, 0, 1, 0},
		{0, 1, 0, 1},
		{2, 2, 0, 0},
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}

	var current candidate
	for _, c := range starts {
		improved, err := s.try(c)
		if err != nil {
			return err
		}
		if improved {
			current = c
		}
	}
	if s.best == nil {
		return nil
	}

	for improved := true; improved; {
		improved = false
		neighbours := []candidate{
			{current.p + 1, current.q, current.sp, current.sq},
			{current.p - 1, current.q, current.sp, current.sq},
			{current.p, current.q + 1, current.sp, current.sq},
			{current.p, current.q - 1, current.sp, current.sq},
			{current.p + 1, current.q + 1, current.sp, current.sq},
			{current.p - 1, current.q - 1, current.sp, current.sq},
			{current.p, current.q, current.sp + 1, current.sq},
			{current.p, current.q, current.sp - 1, current.sq},
			{current.p, current.q, current.sp, current.sq + 1},
			{current.p, current.q, current.sp, current.sq - 1},
		}
		for _, c := range neighbours {
			better, err := s.try(c)
			if err != nil {
				return err
			}
			if better {
				current = c
				improved = true
			}
		}
	}

	return nil
}

// grid evaluates every order inside the bounds.
func (s *search) grid() error {
	for p := 0; p <= s.config.MaxP; p++ {
		for q := 0; q <= s.config.MaxQ; q++ {
			for sp := 0; sp <= s.maxSP; sp++ {
				for sq := 0; sq <= s.maxSQ; sq++ {
					if _, err := s.try(candidate{p, q, sp, sq}); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Predict generates forecasts using the selected model.
func (r *Result) Predict(steps int) ([]float64, error) {
	return r.Model.Predict(steps)
}

// PredictWithInterval generates forecasts with prediction intervals.
func (r *Result) PredictWithInterval(steps int, confidence float64) (*arima.Forecast, error) {
	return r.Model.PredictWithInterval(steps, confidence)
}

// InSample returns the in-sample one-step predictions on the training dates.
func (r *Result) InSample() *timeseries.Series {
	return r.Model.InSample()
}

// Residuals returns the model residuals.
func (r *Result) Residuals() []float64 {
	return r.Model.Residuals()
}
