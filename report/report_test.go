package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/covidtrend/timeseries"
)

var start = time.Date(2020, time.February, 26, 0, 0, 0, 0, time.UTC)

func summary() *Summary {
	return &Summary{
		Region:            "Brazil",
		Metric:            "confirmed",
		Start:             "2020-02-26",
		End:               "2020-02-28",
		Observations:      3,
		LastValue:         225,
		AverageGrowthRate: Round(50.0000000001, 2),
		LastDailyGrowth:   Round(49.996, 2),
		Model:             "ARIMA(0,1,0)",
		AIC:               Round(12.3456, 2),
		Horizon:           15,
		ForecastEnd:       "2020-03-14",
		ForecastLast:      Round(1012.4, 0),
		Errors:            []string{"decompose: too short"},
	}
}

func TestRound(t *testing.T) {
	assert.Nil(t, Round(math.NaN(), 2))
	assert.Nil(t, Round(math.Inf(-1), 2))

	d := Round(2.345, 1)
	require.NotNil(t, d)
	assert.Equal(t, "2.3", d.String())
	assert.Equal(t, "50.00%", Percent(Round(50, 2)))
	assert.Equal(t, "n/a", Percent(nil))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, summary()))

	out := buf.String()
	assert.Regexp(t, `Average growth rate\s+50\.00%`, out)
	assert.Regexp(t, `Last daily growth\s+50\.00%`, out)
	assert.Contains(t, out, "ARIMA(0,1,0)")
	assert.Contains(t, out, "Error")
	assert.Contains(t, out, "1012")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, summary()))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Brazil", decoded.Region)
	require.NotNil(t, decoded.AverageGrowthRate)
	assert.True(t, decoded.AverageGrowthRate.Equal(decimal.NewFromInt(50)))
	assert.Nil(t, decoded.LjungBoxPValue)

	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, SaveJSON(path, summary()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
}

func sheets() []Sheet {
	confirmed := timeseries.NewDaily(start, []float64{100, 150, 225})
	confirmed.Name = "confirmed"
	trend := timeseries.NewDaily(start, []float64{math.NaN(), 160, math.NaN()})
	trend.Name = "trend"
	fc := timeseries.NewDaily(start.AddDate(0, 0, 3), []float64{300, 380})
	fc.Name = "forecast"

	return []Sheet{
		{Name: "Series", Columns: []*timeseries.Series{confirmed, trend}},
		{Name: "Forecast", Columns: []*timeseries.Series{confirmed, fc}},
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteWorkbook(path, summary(), sheets()...))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Series", "Forecast"}, f.GetSheetList())

	region, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Brazil", region)

	rows, err := f.GetRows("Series")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"date", "confirmed", "trend"}, rows[0])
	assert.Equal(t, []string{"2020-02-26", "100"}, rows[1])
	assert.Equal(t, []string{"2020-02-27", "150", "160"}, rows[2])

	forecastRows, err := f.GetRows("Forecast")
	require.NoError(t, err)
	require.Len(t, forecastRows, 6)
	assert.Equal(t, "2020-03-01", forecastRows[5][0])
	assert.Equal(t, "380", forecastRows[5][2])
}

func TestWriteCSVs(t *testing.T) {
	dir := t.TempDir()

	paths, err := WriteCSVs(dir, sheets()...)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "Series.csv"), filepath.Join(dir, "Forecast.csv")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "date,confirmed,trend\n2020-02-26,100,\n2020-02-27,150,160\n2020-02-28,225,\n", string(data))
}
