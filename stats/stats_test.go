package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/covidtrend/timeseries"
)

func ar1(n int, phi float64) []float64 {
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + (float64(i%10)-5)/10
	}
	return values
}

func TestACF(t *testing.T) {
	acf := ACF(timeseries.New(ar1(100, 0.8)), 10)
	require.NotNil(t, acf)
	require.Len(t, acf, 11)

	assert.InDelta(t, 1.0, acf[0], 1e-10)
	for _, v := range acf {
		assert.LessOrEqual(t, math.Abs(v), 1.0+1e-10)
	}
}

func TestACFConstantSeries(t *testing.T) {
	assert.Nil(t, ACF(timeseries.New([]float64{3, 3, 3, 3}), 2))
}

func TestACFClampsLag(t *testing.T) {
	acf := ACF(timeseries.New([]float64{1, 2, 3}), 10)
	assert.Len(t, acf, 3)
}

func whiteNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.NormFloat64()
	}
	return values
}

func TestADF(t *testing.T) {
	t.Run("white noise", func(t *testing.T) {
		result := ADF(timeseries.New(whiteNoise(200, 42)), 0)
		require.NotNil(t, result)
		assert.True(t, result.IsStationary, "stat=%f p=%f", result.Statistic, result.PValue)
		assert.Equal(t, 5, result.Lags)
	})

	t.Run("explosive", func(t *testing.T) {
		noise := whiteNoise(200, 7)
		values := make([]float64, 200)
		values[0] = 10
		for i := 1; i < len(values); i++ {
			values[i] = 1.03*values[i-1] + noise[i]
		}
		result := ADF(timeseries.New(values), 0)
		require.NotNil(t, result)
		assert.False(t, result.IsStationary, "stat=%f p=%f", result.Statistic, result.PValue)
	})

	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, ADF(timeseries.New([]float64{1, 2, 3}), 0))
	})
}

func TestKPSS(t *testing.T) {
	t.Run("white noise", func(t *testing.T) {
		result := KPSS(timeseries.New(whiteNoise(200, 42)), "c", 0)
		require.NotNil(t, result)
		assert.True(t, result.IsStationary, "stat=%f", result.Statistic)
	})

	t.Run("trending", func(t *testing.T) {
		values := make([]float64, 200)
		for i := range values {
			values[i] = float64(i) * 2
		}
		result := KPSS(timeseries.New(values), "c", 0)
		require.NotNil(t, result)
		assert.False(t, result.IsStationary, "stat=%f", result.Statistic)

		ct := KPSS(timeseries.New(values), "ct", 0)
		require.NotNil(t, ct)
		assert.Equal(t, 0.146, ct.CriticalVals["5%"])
	})
}

func TestNDiffs(t *testing.T) {
	t.Run("stationary", func(t *testing.T) {
		assert.Equal(t, 0, NDiffs(timeseries.New(whiteNoise(200, 3)), 2, "kpss"))
	})

	t.Run("linear trend", func(t *testing.T) {
		values := make([]float64, 200)
		for i := range values {
			values[i] = float64(i)*3 + math.Sin(float64(i)*1.7)
		}
		assert.GreaterOrEqual(t, NDiffs(timeseries.New(values), 2, "kpss"), 1)
	})
}

func TestNSDiffs(t *testing.T) {
	values := make([]float64, 140)
	for i := range values {
		values[i] = 50 * math.Sin(2*math.Pi*float64(i%7)/7)
	}
	assert.Equal(t, 1, NSDiffs(timeseries.New(values), 7, 1))
	assert.Equal(t, 0, NSDiffs(timeseries.New(values[:10]), 7, 1))
}

func TestCalculateIC(t *testing.T) {
	ic := CalculateIC(-100, 50, 3)

	assert.InDelta(t, 206.0, ic.AIC, 1e-10)
	assert.InDelta(t, 206.0+2*3*4/46.0, ic.AICc, 1e-10)
	assert.InDelta(t, 200+3*math.Log(50), ic.BIC, 1e-10)

	assert.Equal(t, ic.BIC, ic.Select("bic"))
	assert.Equal(t, ic.AICc, ic.Select("aicc"))
	assert.Equal(t, ic.AIC, ic.Select("aic"))

	assert.True(t, math.IsInf(CalculateIC(-1, 3, 3).AICc, 1))
}

func TestLjungBox(t *testing.T) {
	t.Run("autocorrelated", func(t *testing.T) {
		result := LjungBox(timeseries.New(ar1(200, 0.9)), 10, 0)
		require.NotNil(t, result)
		assert.Less(t, result.PValue, 0.05)
		assert.Equal(t, 10, result.DOF)
	})

	t.Run("dof floor", func(t *testing.T) {
		result := LjungBox(timeseries.New(ar1(200, 0.9)), 5, 8)
		require.NotNil(t, result)
		assert.Equal(t, 1, result.DOF)
	})

	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, LjungBox(timeseries.New([]float64{1, 2, 3}), 2, 0))
	})
}
