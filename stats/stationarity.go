package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/covidtrend/timeseries"
)

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller test for a unit root, with a constant.
// The null hypothesis is that the series is non-stationary; it is rejected
// when the p-value is below 0.05. Returns nil when the series is too short or
// the regression is singular.
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	// Schwert's rule of thumb
	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff.Values[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff.Values[t-j])
		}
	}

	coeffs, se := olsRegression(x, y)
	if coeffs == nil || se[1] == 0 {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test.
// The null hypothesis is that the series is level ("c") or trend ("ct")
// stationary; it is rejected when the p-value is below 0.05.
func KPSS(series *timeseries.Series, regression string, nlags int) *KPSSResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}

	residuals := make([]float64, n)
	if regression == "ct" {
		t := make([]float64, n)
		for i := range t {
			t[i] = float64(i)
		}
		a, b := stat.LinearRegression(t, series.Values, nil, false)
		for i, v := range series.Values {
			residuals[i] = v - a - b*t[i]
		}
	} else {
		mean := stat.Mean(series.Values, nil)
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	cumSum := floats.CumSum(make([]float64, n), residuals)

	// Newey-West long-run variance with Bartlett weights
	s2 := floats.Dot(residuals, residuals) / float64(n)
	for l := 1; l <= nlags && l < n; l++ {
		cov := floats.Dot(residuals[l:], residuals[:n-l]) / float64(n)
		weight := 1.0 - float64(l)/float64(nlags+1)
		s2 += 2 * weight * cov
	}
	if s2 <= 0 {
		s2 = 1e-10
	}

	kpssStat := floats.Dot(cumSum, cumSum) / (float64(n) * float64(n) * s2)

	criticalVals := map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	if regression == "ct" {
		criticalVals = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	}

	pValue := kpssPValue(kpssStat, regression)

	return &KPSSResult{
		Statistic:    kpssStat,
		PValue:       pValue,
		Lags:         nlags,
		CriticalVals: criticalVals,
		IsStationary: pValue >= 0.05,
	}
}

// olsRegression solves y = X*beta by ordinary least squares and returns the
// coefficients with their standard errors, or nil if X'X cannot be inverted.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, nil
		}
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)

	s2 := mat.Dot(&resid, &resid) / float64(n-k)

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * inv.At(i, i))
	}

	return coeffs, stdErrors
}

// mackinnonPValue interpolates the asymptotic MacKinnon (1994) critical
// values for the constant-only regression.
func mackinnonPValue(tStat float64) float64 {
	switch {
	case tStat < -3.96:
		return 0.001
	case tStat < -3.43:
		return 0.01
	case tStat < -2.86:
		return 0.05
	case tStat < -2.57:
		return 0.10
	case tStat < -1.94:
		return 0.25
	case tStat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(tStat+1.62)*0.25, 0.99)
	}
}

// kpssPValue approximates the KPSS p-value from the tabulated critical values.
func kpssPValue(kpss float64, regression string) float64 {
	if regression == "ct" {
		switch {
		case kpss > 0.216:
			return 0.01
		case kpss > 0.146:
			return 0.05
		case kpss > 0.119:
			return 0.10
		default:
			return 0.10 + (0.119-kpss)*2
		}
	}

	switch {
	case kpss > 0.739:
		return 0.01
	case kpss > 0.463:
		return 0.05
	case kpss > 0.347:
		return 0.10
	default:
		return 0.10 + (0.347-kpss)*0.5
	}
}
