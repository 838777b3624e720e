package report

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/covidtrend/timeseries"
)

// Sheet is one date-keyed table of series.
type Sheet struct {
	Name    string
	Columns []*timeseries.Series
}

const summarySheet = "Summary"

// WriteWorkbook writes the summary and every sheet into one .xlsx file.
func WriteWorkbook(path string, summary *Summary, sheets ...Sheet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if summary != nil {
		for i, row := range summary.rows() {
			if err := setRow(f, summarySheet, i+1, row[0], row[1]); err != nil {
				return err
			}
		}
		if err := f.SetColWidth(summarySheet, "A", "B", 28); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary.rows())), bold); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	for _, sheet := range sheets {
		if err := writeSheet(f, sheet, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	if _, err := f.NewSheet(sheet.Name); err != nil {
		return fmt.Errorf("report: sheet %q: %w", sheet.Name, err)
	}

	days, rows, err := timeseries.Align(sheet.Columns...)
	if err != nil {
		return fmt.Errorf("report: sheet %q: %w", sheet.Name, err)
	}

	header := []any{"date"}
	for i, s := range sheet.Columns {
		header = append(header, timeseries.ColumnName(s, i))
	}
	if err := setRow(f, sheet.Name, 1, header...); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := f.SetCellStyle(sheet.Name, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := f.SetColWidth(sheet.Name, "A", last, 16); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for i, day := range days {
		cells := make([]any, 0, len(header))
		cells = append(cells, day.Format(time.DateOnly))
		for _, v := range rows[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, v)
		}
		if err := setRow(f, sheet.Name, i+2, cells...); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes values into consecutive cells of row, skipping nil values.
func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("report: %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// WriteCSVs writes each sheet to dir as <name>.csv and returns the paths.
func WriteCSVs(dir string, sheets ...Sheet) ([]string, error) {
	paths := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		path := filepath.Join(dir, sheet.Name+".csv")
		if err := timeseries.SaveCSV(path, sheet.Columns...); err != nil {
			return paths, fmt.Errorf("report: %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
