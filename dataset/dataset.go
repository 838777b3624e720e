// Package dataset loads the case line list into a gota DataFrame, normalizes
// its column names and selects per-region series from it.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/sartorproj/covidtrend/timeseries"
)

// Normalized names of the columns of the public line list.
const (
	ColumnSerial     = "sno"
	ColumnDate       = "observationdate"
	ColumnProvince   = "provincestate"
	ColumnRegion     = "countryregion"
	ColumnLastUpdate = "lastupdate"
	ColumnConfirmed  = "confirmed"
	ColumnDeaths     = "deaths"
	ColumnRecovered  = "recovered"
)

// dateLayouts lists the date formats seen in the line list, tried in order.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var errBadDate = errors.New("unrecognized date format")

// Options declares which columns are typed on load. Names may be given raw
// or normalized.
type Options struct {
	DateColumns    []string
	NumericColumns []string
}

// DefaultOptions returns the typed columns of the public line list.
func DefaultOptions() Options {
	return Options{
		DateColumns:    []string{ColumnDate, ColumnLastUpdate},
		NumericColumns: []string{ColumnConfirmed, ColumnDeaths, ColumnRecovered},
	}
}

// Table is a loaded line list with normalized column names. Date columns
// hold ISO dates (YYYY-MM-DD) and numeric columns hold floats.
type Table struct {
	df dataframe.DataFrame
}

// NormalizeName removes "/" and " " from a column name and lowercases it,
// so "Country/Region" becomes "countryregion".
func NormalizeName(name string) string {
	name = strings.NewReplacer("/", "", " ", "").Replace(name)
	return strings.ToLower(name)
}

// Load reads the CSV file at path.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read reads a CSV table with a header row from r.
func Read(r io.Reader, opts Options) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("dataset: read csv: %w", df.Err)
	}

	for _, name := range df.Names() {
		if normalized := NormalizeName(name); normalized != name {
			df = df.Rename(normalized, name)
			if df.Err != nil {
				return nil, fmt.Errorf("dataset: rename %q: %w", name, df.Err)
			}
		}
	}

	t := &Table{df: df}
	for _, col := range opts.DateColumns {
		if err := t.parseDates(NormalizeName(col)); err != nil {
			return nil, err
		}
	}
	for _, col := range opts.NumericColumns {
		if err := t.parseNumbers(NormalizeName(col)); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Columns returns the normalized column names.
func (t *Table) Columns() []string {
	return t.df.Names()
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.df.Nrow()
}

// DataFrame returns the underlying frame.
func (t *Table) DataFrame() dataframe.DataFrame {
	return t.df
}

func (t *Table) require(col string) error {
	if !slices.Contains(t.df.Names(), col) {
		return &SchemaError{Column: col, Available: t.df.Names()}
	}
	return nil
}

func (t *Table) parseDates(col string) error {
	if err := t.require(col); err != nil {
		return err
	}

	records := t.df.Col(col).Records()
	iso := make([]string, len(records))
	for i, rec := range records {
		d, err := parseDate(rec)
		if err != nil {
			return &ParseError{Column: col, Row: i + 1, Value: rec, Err: err}
		}
		iso[i] = d.Format(time.DateOnly)
	}

	return t.mutate(series.New(iso, series.String, col))
}

func (t *Table) parseNumbers(col string) error {
	if err := t.require(col); err != nil {
		return err
	}
	values, err := parseFloats(col, t.df.Col(col).Records())
	if err != nil {
		return err
	}
	return t.mutate(series.New(values, series.Float, col))
}

func (t *Table) mutate(s series.Series) error {
	df := t.df.Mutate(s)
	if df.Err != nil {
		return fmt.Errorf("dataset: column %q: %w", s.Name, df.Err)
	}
	t.df = df
	return nil
}

// Dates returns the parsed values of a date column.
func (t *Table) Dates(col string) ([]time.Time, error) {
	col = NormalizeName(col)
	if err := t.require(col); err != nil {
		return nil, err
	}

	records := t.df.Col(col).Records()
	dates := make([]time.Time, len(records))
	for i, rec := range records {
		d, err := parseDate(rec)
		if err != nil {
			return nil, &ParseError{Column: col, Row: i + 1, Value: rec, Err: err}
		}
		dates[i] = d
	}
	return dates, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return timeseries.Day(d), nil
		}
	}
	return time.Time{}, errBadDate
}

func parseFloats(col string, records []string) ([]float64, error) {
	values := make([]float64, len(records))
	for i, rec := range records {
		rec = strings.TrimSpace(rec)
		if rec == "" || rec == "NaN" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(rec, 64)
		if err != nil {
			return nil, &ParseError{Column: col, Row: i + 1, Value: rec, Err: err}
		}
		values[i] = v
	}
	return values, nil
}
