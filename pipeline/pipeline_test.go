package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/covidtrend/config"
	"github.com/sartorproj/covidtrend/forecast"
	"github.com/sartorproj/covidtrend/growth"
	"github.com/sartorproj/covidtrend/timeseries"
)

var firstCase = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

// writeLineList writes three zero rows and then days of exponential growth
// for Brazil, with an Italy row per day in between.
func writeLineList(t *testing.T, days int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("SNo,ObservationDate,Province/State,Country/Region,Last Update,Confirmed,Deaths,Recovered\n")
	sno := 1
	for i := -3; i < days; i++ {
		day := firstCase.AddDate(0, 0, i)
		confirmed := 0.0
		if i >= 0 {
			confirmed = math.Floor(10 * math.Pow(1.1, float64(i)))
		}
		deaths := math.Floor(confirmed / 20)
		fmt.Fprintf(&b, "%d,%s,,Brazil,%s,%.0f,%.0f,0\n",
			sno, day.Format("01/02/2006"), day.Format("2006-01-02T15:04:05"), confirmed, deaths)
		sno++
		fmt.Fprintf(&b, "%d,%s,,Italy,%s,%d,0,0\n",
			sno, day.Format("01/02/2006"), day.Format("2006-01-02T15:04:05"), 1000+i)
		sno++
	}

	path := filepath.Join(t.TempDir(), "covid_19_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T, days int) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Dataset.Path = writeLineList(t, days)
	cfg.Selection.Region = "Brazil"
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Forecast.Horizon = 15
	cfg.Forecast.MaxP = 1
	cfg.Forecast.MaxQ = 1
	cfg.Forecast.Timeout = time.Minute
	return cfg
}

type naive struct {
	series *timeseries.Series
}

func (n naive) Predict(horizon int) ([]float64, error) {
	out := make([]float64, horizon)
	for i := range out {
		out[i] = n.series.Values[n.series.Len()-1]
	}
	return out, nil
}

func (n naive) InSample() *timeseries.Series {
	fitted := make([]float64, n.series.Len())
	fitted[0] = math.NaN()
	copy(fitted[1:], n.series.Values)
	return n.series.WithValues("fitted", fitted)
}

func (n naive) Description() string { return "naive" }

var naiveForecaster = forecast.ForecasterFunc(func(_ context.Context, s *timeseries.Series) (forecast.Model, error) {
	return naive{series: s}, nil
})

func TestRunWithoutOutput(t *testing.T) {
	cfg := testConfig(t, 40)

	res, err := Run(context.Background(), cfg, nil, Options{SkipOutput: true, Forecaster: naiveForecaster})
	require.NoError(t, err)
	require.NoError(t, res.Err())

	assert.Equal(t, "confirmed", res.Metric)
	primary := res.Primary()
	require.Equal(t, 40, primary.Len())
	assert.Equal(t, firstCase, primary.Start())
	assert.Equal(t, 10.0, primary.Values[0])

	require.NotNil(t, res.Series["deaths"])
	assert.Less(t, res.Series["deaths"].Len(), 40)

	require.NotNil(t, res.NewCases)
	assert.Equal(t, 0.0, res.NewCases.Values[0])
	assert.Equal(t, primary.Values[1]-primary.Values[0], res.NewCases.Values[1])
	require.NotNil(t, res.Smoothed)
	assert.True(t, math.IsNaN(res.Smoothed.Values[5]))
	assert.False(t, math.IsNaN(res.Smoothed.Values[6]))

	assert.InDelta(t, 10, res.AverageGrowthRate, 0.5)
	require.NotNil(t, res.DailyGrowth)
	assert.Equal(t, 39, res.DailyGrowth.Len())

	assert.Contains(t, res.Decompositions, "confirmed")
	assert.Contains(t, res.Decompositions, "new_confirmed")
	assert.Equal(t, 7, res.Decompositions["confirmed"].Period)

	require.NotNil(t, res.Forecast)
	assert.Equal(t, "naive", res.Forecast.Model)
	require.Equal(t, 15, res.Forecast.Forecast.Len())
	assert.Equal(t, primary.End().AddDate(0, 0, 1), res.Forecast.Forecast.Start())
	assert.Equal(t, primary.End().AddDate(0, 0, 15), res.Forecast.Forecast.End())

	require.NotNil(t, res.Summary)
	assert.Equal(t, "Brazil", res.Summary.Region)
	assert.Equal(t, 40, res.Summary.Observations)
	assert.Equal(t, "2020-03-01", res.Summary.Start)
	assert.Equal(t, "naive", res.Summary.Model)
	assert.Empty(t, res.Files)
}

func TestRunAutoARIMA(t *testing.T) {
	cfg := testConfig(t, 40)

	res, err := Run(context.Background(), cfg, nil, Options{SkipOutput: true, SkipDecomposition: true})
	require.NoError(t, err)
	require.NoError(t, res.Err())

	require.NotNil(t, res.Forecast)
	assert.Contains(t, res.Forecast.Model, "ARIMA(")
	assert.Equal(t, 15, res.Forecast.Forecast.Len())
	assert.Equal(t, 40, res.Forecast.InSample.Len())
	require.NotNil(t, res.Forecast.Diagnostics)
	assert.NotNil(t, res.Summary.AIC)
	assert.Empty(t, res.Decompositions)
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t, 40)
	cfg.Output.CSV = true

	res, err := Run(context.Background(), cfg, nil, Options{Forecaster: naiveForecaster})
	require.NoError(t, err)
	require.NoError(t, res.Err())

	for _, name := range []string{
		"confirmed.png",
		"deaths.png",
		"new_cases.png",
		"daily_growth.png",
		"decomposition_confirmed.png",
		"decomposition_new_confirmed.png",
		"forecast.png",
		"series.csv",
		"forecast.csv",
		WorkbookFile,
		SummaryFile,
	} {
		path := filepath.Join(cfg.Output.Dir, name)
		assert.FileExists(t, path)
		assert.Contains(t, res.Files, path)
	}
}

func TestRunUnknownRegion(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.Selection.Region = "Atlantis"

	res, err := Run(context.Background(), cfg, nil, Options{SkipOutput: true})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, timeseries.ErrNoData)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSelect, stageErr.Stage)
}

func TestRunMissingFile(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.Dataset.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := Run(context.Background(), cfg, nil)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageLoad, stageErr.Stage)
}

func TestRunRecordsStageErrors(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Growth.Start = "2020-01-01"

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	failing := forecast.ForecasterFunc(func(context.Context, *timeseries.Series) (forecast.Model, error) {
		return nil, context.DeadlineExceeded
	})

	res, err := Run(context.Background(), cfg, logger, Options{SkipOutput: true, Forecaster: failing})
	require.NoError(t, err)

	stages := make(map[Stage]bool)
	for _, e := range res.Errors {
		stages[e.Stage] = true
	}
	assert.True(t, stages[StageGrowth])
	assert.True(t, stages[StageDecompose], "ten days cannot hold two weekly cycles")
	assert.True(t, stages[StageForecast])

	joined := res.Err()
	var lookup *growth.LookupError
	assert.ErrorAs(t, joined, &lookup)
	assert.ErrorIs(t, joined, context.DeadlineExceeded)
	assert.True(t, math.IsNaN(res.AverageGrowthRate))
	assert.Nil(t, res.Summary.AverageGrowthRate)
	assert.Len(t, res.Summary.Errors, len(res.Errors))

	// new cases still derived despite the failed window lookup
	assert.NotNil(t, res.NewCases)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "stage failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Forecast.Horizon = 0

	_, err := Run(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestStageErrorUnwrap(t *testing.T) {
	err := &StageError{Stage: StageForecast, Err: errors.New("boom")}
	assert.Equal(t, "forecast: boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "boom")
}

func TestResultStageErr(t *testing.T) {
	res := &Result{Errors: []*StageError{
		{Stage: StageSelect, Err: timeseries.ErrNoData},
		{Stage: StageGrowth, Err: growth.ErrDivision},
	}}

	err := res.StageErr(StageGrowth)
	assert.ErrorIs(t, err, growth.ErrDivision)
	assert.NotErrorIs(t, err, timeseries.ErrNoData)
	assert.NoError(t, res.StageErr(StageForecast))
	assert.ErrorIs(t, res.Err(), timeseries.ErrNoData)
}
