// Package arima implements seasonal ARIMA models estimated by conditional sum of squares.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/covidtrend/stats"
	"github.com/sartorproj/covidtrend/timeseries"
)

var (
	// ErrNotFitted is returned when a model is used before Fit succeeded.
	ErrNotFitted = errors.New("arima: model must be fitted first")
	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("arima: insufficient data for the specified order")
	// ErrNotConverged is returned when the CSS optimisation fails.
	ErrNotConverged = errors.New("arima: estimation did not converge")
)

// coeffBound keeps every coefficient strictly inside (-1, 1).
const coeffBound = 0.99

// Order represents the model order (p, d, q) x (P, D, Q)[m].
type Order struct {
	P int // AR order
	D int // Differencing order
	Q int // MA order

	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period
}

// Seasonal reports whether the order has any seasonal component.
func (o Order) Seasonal() bool {
	return o.M > 1 && (o.SP > 0 || o.SD > 0 || o.SQ > 0)
}

func (o Order) String() string {
	s := fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	if o.Seasonal() {
		s += fmt.Sprintf("(%d,%d,%d)[%d]", o.SP, o.SD, o.SQ, o.M)
	}
	return s
}

// Validate checks that the order is non-negative and that seasonal terms
// come with a usable period.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SP < 0 || o.SD < 0 || o.SQ < 0 || o.M < 0 {
		return fmt.Errorf("arima: negative order %+v", o)
	}
	if (o.SP > 0 || o.SD > 0 || o.SQ > 0) && o.M < 2 {
		return fmt.Errorf("arima: seasonal terms need a period of at least 2, got %d", o.M)
	}
	return nil
}

func (o Order) numParams() int {
	return o.P + o.Q + o.SP + o.SQ
}

func (o Order) arLags() int { return o.P + o.SP*o.M }
func (o Order) maLags() int { return o.Q + o.SQ*o.M }

// Model represents a (seasonal) ARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // phi
	MACoeffs  []float64 // theta
	SARCoeffs []float64 // Phi
	SMACoeffs []float64 // Theta
	Intercept float64   // mean of the differenced series, zero when d+D >= 2
	Variance  float64   // residual variance
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	fitted      bool
	includeMean bool
	data        *timeseries.Series
	levels      [][]float64 // series before each differencing step
	lags        []int
	diffData    []float64
	residuals   []float64
	sse         float64
	start       int
}

// New creates a non-seasonal ARIMA(p,d,q) model.
func New(p, d, q int) *Model {
	return NewSeasonal(Order{P: p, D: d, Q: q})
}

// NewSeasonal creates a model with the full seasonal order.
func NewSeasonal(order Order) *Model {
	return &Model{
		Order:     order,
		ARCoeffs:  make([]float64, max(order.P, 0)),
		MACoeffs:  make([]float64, max(order.Q, 0)),
		SARCoeffs: make([]float64, max(order.SP, 0)),
		SMACoeffs: make([]float64, max(order.SQ, 0)),
	}
}

// Fit estimates the model on series.
func (m *Model) Fit(series *timeseries.Series) error {
	if err := m.Order.Validate(); err != nil {
		return err
	}
	if series.IsEmpty() {
		return timeseries.ErrNoData
	}

	o := m.Order
	need := o.D + o.SD*o.M + max(o.arLags(), o.maLags()) + 10
	if series.Len() < need {
		return fmt.Errorf("%w: %s needs %d observations, got %d", ErrInsufficientData, o, need, series.Len())
	}

	m.fitted = false
	m.data = series
	m.levels = m.levels[:0]
	m.lags = m.lags[:0]

	current := series.Values
	for i := 0; i < o.D; i++ {
		m.levels = append(m.levels, current)
		m.lags = append(m.lags, 1)
		current = difference(current, 1)
	}
	for i := 0; i < o.SD; i++ {
		m.levels = append(m.levels, current)
		m.lags = append(m.lags, o.M)
		current = difference(current, o.M)
	}
	m.diffData = current

	m.includeMean = o.D+o.SD < 2
	m.Intercept = 0
	if m.includeMean {
		m.Intercept = stat.Mean(current, nil)
	}

	if err := m.fitCSS(); err != nil {
		return err
	}

	m.calculateIC()
	m.fitted = true
	return nil
}

// params holds the unconstrained coefficient sets of one candidate.
type params struct {
	ar, ma, sar, sma []float64
}

// unpack maps the optimiser's unconstrained vector onto bounded coefficients.
func (o Order) unpack(x []float64) params {
	bounded := make([]float64, len(x))
	for i, v := range x {
		bounded[i] = coeffBound * math.Tanh(v)
	}
	var p params
	p.ar, bounded = bounded[:o.P], bounded[o.P:]
	p.ma, bounded = bounded[:o.Q], bounded[o.Q:]
	p.sar, bounded = bounded[:o.SP], bounded[o.SP:]
	p.sma = bounded[:o.SQ]
	return p
}

// polynomials expands the multiplicative model into lag-indexed AR and MA
// weights, so that z_t = sum ar[k] z_{t-k} + sum ma[k] e_{t-k} + e_t.
// Index 0 is unused.
func (p params) polynomials(period int) (ar, ma []float64) {
	ar = multiply(lagPolynomial(p.ar, 1, -1), lagPolynomial(p.sar, period, -1))
	for k := 1; k < len(ar); k++ {
		ar[k] = -ar[k]
	}
	ma = multiply(lagPolynomial(p.ma, 1, 1), lagPolynomial(p.sma, period, 1))
	return ar, ma
}

func (m *Model) params() params {
	return params{ar: m.ARCoeffs, ma: m.MACoeffs, sar: m.SARCoeffs, sma: m.SMACoeffs}
}

func (m *Model) fitCSS() error {
	o := m.Order
	z := make([]float64, len(m.diffData))
	for i, v := range m.diffData {
		z[i] = v - m.Intercept
	}
	m.start = o.arLags()

	k := o.numParams()
	if k > 0 {
		x0 := make([]float64, k)
		if o.P > 0 {
			if acf := stats.ACF(timeseries.New(m.diffData), o.P); acf != nil {
				for i, phi := range yuleWalker(acf, o.P) {
					x0[i] = math.Atanh(math.Max(-0.95, math.Min(0.95, phi/coeffBound)))
				}
			}
		}

		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				ar, ma := o.unpack(x).polynomials(o.M)
				_, sse := conditionalResiduals(z, ar, ma, m.start)
				if math.IsNaN(sse) || math.IsInf(sse, 0) {
					return math.Inf(1)
				}
				return sse
			},
		}
		settings := &optimize.Settings{
			FuncEvaluations: 400 * (k + 1),
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 50,
			},
		}

		result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if err != nil && !budgetExhausted(result) {
			return fmt.Errorf("%w: %s: %v", ErrNotConverged, o, err)
		}
		if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
			return fmt.Errorf("%w: %s: non-finite sum of squares", ErrNotConverged, o)
		}

		p := o.unpack(result.X)
		m.ARCoeffs, m.MACoeffs, m.SARCoeffs, m.SMACoeffs = p.ar, p.ma, p.sar, p.sma
	}

	ar, ma := m.params().polynomials(o.M)
	residuals, sse := conditionalResiduals(z, ar, ma, m.start)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return fmt.Errorf("%w: %s: non-finite sum of squares", ErrNotConverged, o)
	}
	// the warm-up positions are predicted by the mean alone
	for t := 0; t < m.start; t++ {
		residuals[t] = z[t]
	}
	m.residuals = residuals
	m.sse = sse

	count := len(z) - m.start
	if count > k+1 {
		m.Variance = sse / float64(count-k-1)
	} else {
		m.Variance = sse / float64(count)
	}

	return nil
}

// budgetExhausted reports whether the search stopped on its evaluation or
// iteration budget. The best point found so far is still usable then.
func budgetExhausted(result *optimize.Result) bool {
	if result == nil {
		return false
	}
	return result.Status == optimize.FunctionEvaluationLimit || result.Status == optimize.IterationLimit
}

// conditionalResiduals runs the ARMA recursion over z with pre-sample
// innovations set to zero and returns the innovations with their sum of
// squares from position start on.
func conditionalResiduals(z, ar, ma []float64, start int) ([]float64, float64) {
	e := make([]float64, len(z))
	sse := 0.0
	for t := start; t < len(z); t++ {
		pred := 0.0
		for k := 1; k < len(ar); k++ {
			pred += ar[k] * z[t-k]
		}
		for k := 1; k < len(ma) && k <= t; k++ {
			pred += ma[k] * e[t-k]
		}
		e[t] = z[t] - pred
		sse += e[t] * e[t]
	}
	return e, sse
}

// calculateIC calculates the Gaussian log-likelihood and AIC, AICc, BIC.
func (m *Model) calculateIC() {
	n := len(m.diffData) - m.start
	sigma2 := math.Max(m.sse/float64(n), 1e-10)
	m.LogLik = -float64(n) / 2 * (math.Log(2*math.Pi*sigma2) + 1)

	k := m.Order.numParams() + 1
	if m.includeMean {
		k++
	}

	ic := stats.CalculateIC(m.LogLik, n, k)
	m.AIC, m.AICc, m.BIC = ic.AIC, ic.AICc, ic.BIC
}

// Predict generates point forecasts on the original scale for the given
// number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("arima: steps must be at least 1")
	}

	ar, ma := m.params().polynomials(m.Order.M)
	n := len(m.diffData)

	z := make([]float64, n+steps)
	for i, v := range m.diffData {
		z[i] = v - m.Intercept
	}
	// future innovations are zero in expectation
	e := make([]float64, n+steps)
	copy(e, m.residuals)

	for t := n; t < n+steps; t++ {
		pred := 0.0
		for k := 1; k < len(ar) && k <= t; k++ {
			pred += ar[k] * z[t-k]
		}
		for k := 1; k < len(ma) && k <= t; k++ {
			pred += ma[k] * e[t-k]
		}
		z[t] = pred
	}

	forecasts := make([]float64, steps)
	for h := range forecasts {
		forecasts[h] = z[n+h] + m.Intercept
	}

	return integrate(m.levels, m.lags, forecasts), nil
}

// Forecast holds point forecasts with a symmetric normal prediction interval.
type Forecast struct {
	Mean       []float64
	Lower      []float64
	Upper      []float64
	Confidence float64
}

// PredictWithInterval returns forecasts with prediction intervals at the
// given confidence level, e.g. 0.95.
func (m *Model) PredictWithInterval(steps int, confidence float64) (*Forecast, error) {
	if confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("arima: confidence must be in (0, 1), got %g", confidence)
	}
	mean, err := m.Predict(steps)
	if err != nil {
		return nil, err
	}

	psi := m.psiWeights(steps)
	z := distuv.UnitNormal.Quantile(0.5 + confidence/2)

	f := &Forecast{
		Mean:       mean,
		Lower:      make([]float64, steps),
		Upper:      make([]float64, steps),
		Confidence: confidence,
	}
	cum := 0.0
	for h := range mean {
		cum += psi[h] * psi[h]
		half := z * math.Sqrt(m.Variance*cum)
		f.Lower[h] = mean[h] - half
		f.Upper[h] = mean[h] + half
	}
	return f, nil
}

// psiWeights returns the first n MA(infinity) weights of the integrated model.
func (m *Model) psiWeights(n int) []float64 {
	ar, ma := m.params().polynomials(m.Order.M)

	full := make([]float64, len(ar))
	full[0] = 1
	for k := 1; k < len(ar); k++ {
		full[k] = -ar[k]
	}
	for i := 0; i < m.Order.D; i++ {
		full = multiply(full, []float64{1, -1})
	}
	for i := 0; i < m.Order.SD; i++ {
		full = multiply(full, lagPolynomial([]float64{1}, m.Order.M, -1))
	}

	psi := make([]float64, n)
	psi[0] = 1
	for j := 1; j < n; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for k := 1; k <= j && k < len(full); k++ {
			v -= full[k] * psi[j-k]
		}
		psi[j] = v
	}
	return psi
}

// Residuals returns the model residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.residuals))
	copy(result, m.residuals)
	return result
}

// FittedValues returns one-step-ahead in-sample predictions on the original
// scale, aligned with the training series. Positions consumed by
// differencing are NaN.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	original := m.data.Values
	offset := len(original) - len(m.diffData)

	fitted := make([]float64, len(original))
	for t := range fitted {
		if t < offset {
			fitted[t] = math.NaN()
			continue
		}
		fitted[t] = original[t] - m.residuals[t-offset]
	}
	return fitted
}

// InSample returns FittedValues as a series on the training dates.
func (m *Model) InSample() *timeseries.Series {
	if !m.fitted {
		return nil
	}
	return m.data.WithValues("fitted", m.FittedValues())
}

// Summary returns a summary of the fitted model.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model, including a Ljung-Box test
// on the conditioned residuals.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	resid := m.residuals[m.start:]
	lags := min(10, len(resid)/5)
	lb := stats.LjungBox(timeseries.New(resid), lags, m.Order.numParams())

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		SARCoeffs: m.SARCoeffs,
		SMACoeffs: m.SMACoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.data.Len(),
		LjungBox:  lb,
	}
}

// difference returns values[t] - values[t-lag].
func difference(values []float64, lag int) []float64 {
	if len(values) <= lag {
		return []float64{}
	}
	out := make([]float64, len(values)-lag)
	for t := lag; t < len(values); t++ {
		out[t-lag] = values[t] - values[t-lag]
	}
	return out
}

// integrate undoes the differencing steps in reverse order. levels[k] is the
// series the k-th step was applied to and lags[k] its lag.
func integrate(levels [][]float64, lags []int, forecasts []float64) []float64 {
	out := forecasts
	for k := len(lags) - 1; k >= 0; k-- {
		hist := levels[k]
		n := len(hist)
		ext := make([]float64, n+len(out))
		copy(ext, hist)
		for j, v := range out {
			ext[n+j] = v + ext[n+j-lags[k]]
		}
		out = ext[n:]
	}
	return out
}

// lagPolynomial builds 1 + sign*(c1 B^step + c2 B^2step + ...).
func lagPolynomial(coeffs []float64, step int, sign float64) []float64 {
	if len(coeffs) == 0 || step < 1 {
		return []float64{1}
	}
	poly := make([]float64, len(coeffs)*step+1)
	poly[0] = 1
	for i, c := range coeffs {
		poly[(i+1)*step] = sign * c
	}
	return poly
}

func multiply(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// yuleWalker estimates AR coefficients by solving the Yule-Walker equations.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	r := mat.NewSymDense(order, nil)
	for i := 0; i < order; i++ {
		for j := i; j < order; j++ {
			r.SetSym(i, j, acf[j-i])
		}
	}
	rhs := mat.NewVecDense(order, append([]float64(nil), acf[1:order+1]...))

	var phi mat.VecDense
	if err := phi.SolveVec(r, rhs); err != nil {
		return nil
	}
	return phi.RawVector().Data
}
