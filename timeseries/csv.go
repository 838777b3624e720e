package timeseries

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// Align joins the given series on their calendar dates. It returns the
// sorted union of dates and, per date, one value per series; a series
// without an observation on a date contributes NaN.
func Align(columns ...*Series) ([]time.Time, [][]float64, error) {
	byDay := make(map[time.Time][]float64)
	for c, s := range columns {
		if len(s.Timestamps) != len(s.Values) {
			return nil, nil, fmt.Errorf("series %q has %d timestamps for %d values", s.Name, len(s.Timestamps), len(s.Values))
		}
		for i, ts := range s.Timestamps {
			day := Day(ts)
			row, ok := byDay[day]
			if !ok {
				row = make([]float64, len(columns))
				for j := range row {
					row[j] = math.NaN()
				}
				byDay[day] = row
			}
			row[c] = s.Values[i]
		}
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	rows := make([][]float64, len(days))
	for i, day := range days {
		rows[i] = byDay[day]
	}
	return days, rows, nil
}

// ColumnName returns the header used for the i-th of several series.
func ColumnName(s *Series, i int) string {
	if s.Name == "" {
		return "y" + strconv.Itoa(i)
	}
	return s.Name
}

// WriteCSV writes the given series as columns of one CSV table keyed by date.
// Rows cover the union of all dates; a series without a value on a date, or
// with a NaN value, leaves its cell empty.
func WriteCSV(w io.Writer, columns ...*Series) error {
	days, rows, err := Align(columns...)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+1)
	header = append(header, "date")
	for i, s := range columns {
		header = append(header, ColumnName(s, i))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, day := range days {
		record := make([]string, 0, len(columns)+1)
		record = append(record, day.Format(time.DateOnly))
		for _, v := range rows[i] {
			if math.IsNaN(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the series to filename with WriteCSV.
func SaveCSV(filename string, columns ...*Series) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if err := WriteCSV(buf, columns...); err != nil {
		return err
	}
	return buf.Flush()
}
