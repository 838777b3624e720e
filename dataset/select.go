package dataset

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/sartorproj/covidtrend/timeseries"
)

// Selection picks one metric of one region. Empty column names default to
// ColumnRegion and ColumnDate.
type Selection struct {
	RegionColumn string
	Region       string // exact match
	DateColumn   string
	Metric       string
}

func (s Selection) withDefaults() Selection {
	if s.RegionColumn == "" {
		s.RegionColumn = ColumnRegion
	}
	if s.DateColumn == "" {
		s.DateColumn = ColumnDate
	}
	s.RegionColumn = NormalizeName(s.RegionColumn)
	s.DateColumn = NormalizeName(s.DateColumn)
	s.Metric = NormalizeName(s.Metric)
	return s
}

// Select returns the series of sel.Metric for sel.Region, restricted to rows
// where the metric is positive and sorted by date. Rows sharing a date, such
// as one per province, are summed. An empty selection wraps
// timeseries.ErrNoData.
func (t *Table) Select(sel Selection) (*timeseries.Series, error) {
	sel = sel.withDefaults()
	for _, col := range []string{sel.RegionColumn, sel.DateColumn, sel.Metric} {
		if err := t.require(col); err != nil {
			return nil, err
		}
	}

	// ISO dates sort chronologically as strings
	work := &Table{df: t.df}
	if err := work.parseDates(sel.DateColumn); err != nil {
		return nil, err
	}
	if work.df.Col(sel.Metric).Type() != series.Float {
		if err := work.parseNumbers(sel.Metric); err != nil {
			return nil, err
		}
	}
	df := work.df

	df = df.Filter(dataframe.F{Colname: sel.RegionColumn, Comparator: series.Eq, Comparando: sel.Region})
	df = df.Filter(dataframe.F{Colname: sel.Metric, Comparator: series.Greater, Comparando: 0.0})
	if df.Err != nil {
		return nil, fmt.Errorf("dataset: filter %s=%q: %w", sel.RegionColumn, sel.Region, df.Err)
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("dataset: no rows with %s=%q and %s > 0: %w",
			sel.RegionColumn, sel.Region, sel.Metric, timeseries.ErrNoData)
	}

	df = df.Arrange(dataframe.Sort(sel.DateColumn))
	if df.Err != nil {
		return nil, fmt.Errorf("dataset: sort by %s: %w", sel.DateColumn, df.Err)
	}

	dateRecords := df.Col(sel.DateColumn).Records()
	metric := df.Col(sel.Metric).Float()

	var (
		timestamps []time.Time
		values     []float64
	)
	for i, rec := range dateRecords {
		d, err := parseDate(rec)
		if err != nil {
			return nil, &ParseError{Column: sel.DateColumn, Row: i + 1, Value: rec, Err: err}
		}
		if n := len(timestamps); n > 0 && timestamps[n-1].Equal(d) {
			values[n-1] += metric[i]
			continue
		}
		timestamps = append(timestamps, d)
		values = append(values, metric[i])
	}

	s, err := timeseries.NewWithTimestamps(timestamps, values)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	s.Name = sel.Metric
	return s, nil
}

// Regions returns the distinct values of the region column in first-seen order.
func (t *Table) Regions(regionColumn string) ([]string, error) {
	if regionColumn == "" {
		regionColumn = ColumnRegion
	}
	regionColumn = NormalizeName(regionColumn)
	if err := t.require(regionColumn); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var regions []string
	for _, r := range t.df.Col(regionColumn).Records() {
		if !seen[r] {
			seen[r] = true
			regions = append(regions, r)
		}
	}
	return regions, nil
}
