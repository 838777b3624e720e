package pipeline

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"

	"github.com/sartorproj/covidtrend/chart"
	"github.com/sartorproj/covidtrend/report"
	"github.com/sartorproj/covidtrend/timeseries"
)

// File names written to the output directory.
const (
	WorkbookFile = "covidtrend.xlsx"
	SummaryFile  = "summary.json"
)

func (r *run) output() {
	dir := r.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.fail(StageOutput, err)
		return
	}

	if r.cfg.Output.Charts {
		r.charts(dir)
	}

	sheets := r.sheets()
	if r.cfg.Output.CSV {
		paths, err := report.WriteCSVs(dir, sheets...)
		r.result.Files = append(r.result.Files, paths...)
		if err != nil {
			r.fail(StageOutput, err)
		}
	}

	r.result.Summary.Errors = r.errorStrings()

	if r.cfg.Output.Workbook {
		path := filepath.Join(dir, WorkbookFile)
		if err := report.WriteWorkbook(path, r.result.Summary, sheets...); err != nil {
			r.fail(StageOutput, err)
		} else {
			r.result.Files = append(r.result.Files, path)
		}
	}
	if r.cfg.Output.JSON {
		path := filepath.Join(dir, SummaryFile)
		if err := report.SaveJSON(path, r.result.Summary); err != nil {
			r.fail(StageOutput, err)
		} else {
			r.result.Files = append(r.result.Files, path)
		}
	}

	r.stage(StageOutput).WithFields(logrus.Fields{
		"dir":   dir,
		"files": len(r.result.Files),
	}).Info("artifacts written")
}

func (r *run) saveChart(path string, p *plot.Plot, err error) {
	if err == nil {
		err = chart.Save(p, path)
	}
	if err != nil {
		r.fail(StageOutput, err)
		return
	}
	r.result.Files = append(r.result.Files, path)
}

func (r *run) charts(dir string) {
	res := r.result

	for i, metric := range r.metrics() {
		s := res.Series[metric]
		if s == nil {
			continue
		}
		color := chart.Blue
		if i > 0 {
			color = chart.Red
		}
		p, err := chart.Lines(
			fmt.Sprintf("%s: %s over time", res.Region, metric), metric,
			chart.Trace{Series: s, Label: metric, Style: chart.Style{Color: color, Points: true}},
		)
		r.saveChart(filepath.Join(dir, metric+".png"), p, err)
	}

	if res.NewCases != nil {
		traces := []chart.Trace{{Series: res.NewCases, Label: "new cases", Style: chart.Style{Color: chart.Blue}}}
		if res.Smoothed != nil {
			traces = append(traces, chart.Trace{
				Series: res.Smoothed,
				Label:  fmt.Sprintf("%d-day mean", r.cfg.Growth.RollingWindow),
				Style:  chart.Style{Color: chart.Gray, Dashed: true},
			})
		}
		p, err := chart.Lines(res.Region+": new cases", "New cases", traces...)
		r.saveChart(filepath.Join(dir, "new_cases.png"), p, err)
	}

	if res.DailyGrowth != nil {
		p, err := chart.Scatter(res.Region+": daily growth rate", "Growth (%)", res.DailyGrowth, chart.Blue)
		r.saveChart(filepath.Join(dir, "daily_growth.png"), p, err)
	}

	for _, name := range slices.Sorted(maps.Keys(res.Decompositions)) {
		path := filepath.Join(dir, "decomposition_"+name+".png")
		plots, err := chart.Decomposition(res.Region+": "+name, res.Decompositions[name])
		if err == nil {
			err = chart.SaveStacked(plots, path)
		}
		if err != nil {
			r.fail(StageOutput, err)
			continue
		}
		res.Files = append(res.Files, path)
	}

	if res.Forecast != nil {
		observed := res.Series[r.forecastMetric()]
		p, err := chart.Forecast(res.Region+": forecast", observed.Name, observed, res.Forecast)
		r.saveChart(filepath.Join(dir, "forecast.png"), p, err)
	}
}

// sheets lays the derived series out as date-keyed tables.
func (r *run) sheets() []report.Sheet {
	res := r.result

	var columns []*timeseries.Series
	for _, metric := range r.metrics() {
		if s := res.Series[metric]; s != nil {
			columns = append(columns, s)
		}
	}
	if res.NewCases != nil {
		columns = append(columns, res.NewCases)
	}
	if res.Smoothed != nil {
		columns = append(columns, res.Smoothed)
	}
	sheets := []report.Sheet{{Name: "series", Columns: columns}}

	if res.DailyGrowth != nil {
		sheets = append(sheets, report.Sheet{Name: "daily_growth", Columns: []*timeseries.Series{res.DailyGrowth}})
	}

	for _, name := range slices.Sorted(maps.Keys(res.Decompositions)) {
		d := res.Decompositions[name]
		sheets = append(sheets, report.Sheet{
			Name:    "decomposition_" + name,
			Columns: []*timeseries.Series{d.Observed, d.Trend, d.Seasonal, d.Residual},
		})
	}

	if fc := res.Forecast; fc != nil {
		columns := slices.DeleteFunc(
			[]*timeseries.Series{res.Series[r.forecastMetric()], fc.InSample, fc.Forecast, fc.Lower, fc.Upper},
			func(s *timeseries.Series) bool { return s == nil },
		)
		sheets = append(sheets, report.Sheet{Name: "forecast", Columns: columns})
	}

	return sheets
}
