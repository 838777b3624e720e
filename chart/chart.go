// Package chart renders series, decompositions and forecasts as labeled
// 2-D charts with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/sartorproj/covidtrend/forecast"
	"github.com/sartorproj/covidtrend/stats"
	"github.com/sartorproj/covidtrend/timeseries"
)

// Default chart size.
const (
	Width  = 10 * vg.Inch
	Height = 6 * vg.Inch
)

var (
	Red  = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	Blue = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	Gray = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Style controls how one trace is drawn. A nil Color picks from the
// default palette.
type Style struct {
	Color  color.Color
	Points bool // draw a marker on every observation
	Dashed bool
}

// Trace is one labeled series on a chart.
type Trace struct {
	Series *timeseries.Series
	Label  string
	Style  Style
}

// xys converts a series to plot points with dates as Unix seconds on X.
// NaN and infinite values are skipped.
func xys(s *timeseries.Series) plotter.XYs {
	points := make(plotter.XYs, 0, s.Len())
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		points = append(points, plotter.XY{X: float64(s.Timestamps[i].Unix()), Y: v})
	}
	return points
}

func newDatePlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true
	return p
}

// Lines draws every trace as a line against its dates.
func Lines(title, yLabel string, traces ...Trace) (*plot.Plot, error) {
	p := newDatePlot(title, yLabel)

	for i, tr := range traces {
		if tr.Series.IsEmpty() {
			continue
		}
		points := xys(tr.Series)
		if len(points) == 0 {
			continue
		}

		c := tr.Style.Color
		if c == nil {
			c = plotutil.Color(i)
		}

		line, scatter, err := plotter.NewLinePoints(points)
		if err != nil {
			return nil, fmt.Errorf("chart: %s: %w", tr.Label, err)
		}
		line.Color = c
		line.Width = vg.Points(1.5)
		if tr.Style.Dashed {
			line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		}
		p.Add(line)

		if tr.Style.Points {
			scatter.GlyphStyle.Color = c
			scatter.GlyphStyle.Radius = vg.Points(2)
			scatter.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(scatter)
		}

		if tr.Label != "" {
			p.Legend.Add(tr.Label, line)
		}
	}

	return p, nil
}

// Scatter draws s as unconnected points.
func Scatter(title, yLabel string, s *timeseries.Series, c color.Color) (*plot.Plot, error) {
	p := newDatePlot(title, yLabel)
	if s.IsEmpty() {
		return p, nil
	}

	scatter, err := plotter.NewScatter(xys(s))
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	if c == nil {
		c = Blue
	}
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	return p, nil
}

// Decomposition returns one panel per component, top to bottom: observed,
// trend, seasonal and residual.
func Decomposition(title string, d *stats.DecompositionResult) ([]*plot.Plot, error) {
	panels := []struct {
		name string
		s    *timeseries.Series
	}{
		{"Observed", d.Observed},
		{"Trend", d.Trend},
		{"Seasonal", d.Seasonal},
		{"Residual", d.Residual},
	}

	plots := make([]*plot.Plot, 0, len(panels))
	for i, panel := range panels {
		p, err := Lines("", panel.name, Trace{Series: panel.s, Style: Style{Color: plotutil.Color(i)}})
		if err != nil {
			return nil, err
		}
		if i == 0 {
			p.Title.Text = fmt.Sprintf("%s (%s, period %d)", title, d.Model, d.Period)
		}
		if i < len(panels)-1 {
			p.X.Label.Text = ""
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// Forecast draws the observed series, the in-sample fit, the forecast and,
// when present, its prediction interval.
func Forecast(title, yLabel string, observed *timeseries.Series, r *forecast.Result) (*plot.Plot, error) {
	traces := []Trace{
		{Series: observed, Label: "Observed", Style: Style{Color: Gray, Points: true}},
		{Series: r.InSample, Label: "Predicted", Style: Style{Color: Blue}},
		{Series: r.Forecast, Label: "Forecast (" + r.Model + ")", Style: Style{Color: Red}},
	}
	if r.Lower != nil && r.Upper != nil {
		traces = append(traces,
			Trace{Series: r.Lower, Label: "Interval", Style: Style{Color: Red, Dashed: true}},
			Trace{Series: r.Upper, Style: Style{Color: Red, Dashed: true}},
		)
	}
	return Lines(title, yLabel, traces...)
}

// Save writes p to path; the image format follows the file extension.
func Save(p *plot.Plot, path string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("chart: save %s: %w", path, err)
	}
	return nil
}

// SaveStacked writes plots as vertically stacked panels sharing one PNG.
func SaveStacked(plots []*plot.Plot, path string) error {
	if len(plots) == 0 {
		return fmt.Errorf("chart: nothing to save to %s", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".png" {
		return fmt.Errorf("chart: stacked charts are PNG only, got %q", ext)
	}

	img := vgimg.New(Width, vg.Length(len(plots))*Height/2)
	dc := draw.New(img)

	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("chart: write %s: %w", path, err)
	}
	return f.Close()
}
