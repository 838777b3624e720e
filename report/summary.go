// Package report exports derived series and run summaries as an Excel
// workbook, CSV files, JSON and a plain-text table.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// Summary is the headline outcome of one analysis run. Percentages are
// rounded to two decimals.
type Summary struct {
	Region       string  `json:"region"`
	Metric       string  `json:"metric"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	Observations int     `json:"observations"`
	LastValue    float64 `json:"last_value"`

	AverageGrowthRate *decimal.Decimal `json:"average_growth_rate_pct,omitempty"`
	LastDailyGrowth   *decimal.Decimal `json:"last_daily_growth_pct,omitempty"`

	Decomposition string `json:"decomposition,omitempty"`

	Model          string           `json:"model,omitempty"`
	AIC            *decimal.Decimal `json:"aic,omitempty"`
	Horizon        int              `json:"horizon,omitempty"`
	ForecastEnd    string           `json:"forecast_end,omitempty"`
	ForecastLast   *decimal.Decimal `json:"forecast_last,omitempty"`
	LjungBoxPValue *decimal.Decimal `json:"ljung_box_p,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// Round converts v to a decimal rounded to places. It returns nil for NaN
// and infinities, which have no decimal form.
func Round(v float64, places int32) *decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	d := decimal.NewFromFloat(v).Round(places)
	return &d
}

// Percent formats a rate with two decimals, e.g. "50.00%".
func Percent(d *decimal.Decimal) string {
	if d == nil {
		return "n/a"
	}
	return d.StringFixed(2) + "%"
}

func fixed(d *decimal.Decimal, places int32) string {
	if d == nil {
		return "n/a"
	}
	return d.StringFixed(places)
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// SaveJSON writes s to path with WriteJSON.
func SaveJSON(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, s); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return f.Close()
}

// rows lists the summary as label/value pairs, in display order.
func (s *Summary) rows() [][2]string {
	rows := [][2]string{
		{"Region", s.Region},
		{"Metric", s.Metric},
		{"Period", s.Start + " .. " + s.End},
		{"Observations", fmt.Sprint(s.Observations)},
		{"Last value", fmt.Sprint(s.LastValue)},
		{"Average growth rate", Percent(s.AverageGrowthRate)},
		{"Last daily growth", Percent(s.LastDailyGrowth)},
	}
	if s.Decomposition != "" {
		rows = append(rows, [2]string{"Decomposition", s.Decomposition})
	}
	if s.Model != "" {
		rows = append(rows,
			[2]string{"Model", s.Model},
			[2]string{"AIC", fixed(s.AIC, 2)},
			[2]string{"Ljung-Box p", fixed(s.LjungBoxPValue, 4)},
			[2]string{fmt.Sprintf("Forecast %s (h=%d)", s.ForecastEnd, s.Horizon), fixed(s.ForecastLast, 0)},
		)
	}
	for _, e := range s.Errors {
		rows = append(rows, [2]string{"Error", e})
	}
	return rows
}

// WriteText prints s as an aligned two-column table.
func WriteText(w io.Writer, s *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range s.rows() {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
