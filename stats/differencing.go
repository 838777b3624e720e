package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/covidtrend/timeseries"
)

// NDiffs determines the number of first differences required for stationarity.
// maxD is the maximum number of differences to consider (default 2).
// testType can be "kpss" (default) or "adf". With "kpss" a level counts as
// stationary when KPSS and ADF agree, or KPSS alone does with p > 0.1.
func NDiffs(series *timeseries.Series, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := series
	for d := 0; d < maxD; d++ {
		if isStationary(current, testType) {
			return d
		}

		current = current.Diff()
		if current.Len() < 10 {
			return d
		}
	}

	return maxD
}

func isStationary(series *timeseries.Series, testType string) bool {
	if testType == "adf" {
		result := ADF(series, 0)
		return result != nil && result.IsStationary
	}
	kpss := KPSS(series, "c", 0)
	if kpss == nil || !kpss.IsStationary {
		return false
	}
	if kpss.PValue > 0.1 {
		return true
	}
	adf := ADF(series, 0)
	return adf != nil && adf.IsStationary
}

// NSDiffs determines the number of seasonal differences required, using the
// seasonal strength measure: one difference is suggested while F_S >= 0.64.
func NSDiffs(series *timeseries.Series, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < 0.64 {
			return d
		}

		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d
		}
	}

	return maxD
}

// SeasonalStrength calculates F_S = max(0, 1 - Var(R) / Var(S+R)) from an
// additive classical decomposition.
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	decomp, err := Decompose(series, period, Additive)
	if err != nil {
		return 0
	}

	var resid, seasonalPlusResid []float64
	for i, r := range decomp.Residual.Values {
		if math.IsNaN(r) {
			continue
		}
		resid = append(resid, r)
		seasonalPlusResid = append(seasonalPlusResid, decomp.Seasonal.Values[i]+r)
	}
	if len(resid) < 2 {
		return 0
	}

	varSR := stat.Variance(seasonalPlusResid, nil)
	if varSR == 0 {
		return 0
	}

	return math.Max(0, 1-stat.Variance(resid, nil)/varSR)
}

// InformationCriteria holds AIC, AICc and BIC for a fitted model.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates all information criteria.
// logLik is the log-likelihood, nObs is the number of observations,
// nParams is the number of estimated parameters.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	bic := -2*logLik + k*math.Log(n)

	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}

	return &InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    bic,
		LogLik: logLik,
	}
}

// Select returns the criterion named by name ("aic", "aicc" or "bic").
func (ic *InformationCriteria) Select(name string) float64 {
	switch name {
	case "bic":
		return ic.BIC
	case "aicc":
		return ic.AICc
	default:
		return ic.AIC
	}
}
