package workbook

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"g74-faultstudy/internal/results"
)

// Default sheet names for the results workbook.
const (
	resultsSheetName    = "Fault I"
	transposedSheetName = "Fault I Transposed"
)

// Exporter writes the finished result table.
type Exporter struct {
	logger *log.Logger
}

// NewExporter returns a workbook exporter.
func NewExporter(logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{logger: logger}
}

// WriteWorkbook writes the result table and its transposed companion as two
// sheets of one workbook at path. Each sheet carries the status message in
// its first row, above the data region.
func (e *Exporter) WriteWorkbook(path string, table *results.Table, status string) error {
	f := excelize.NewFile()
	defer f.Close()

	name, err := dedupeSheetName(f, resultsSheetName)
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("workbook: rename results sheet: %w", err)
	}
	if err := e.writeResultsSheet(f, name, table, status); err != nil {
		return err
	}

	tname, err := dedupeSheetName(f, transposedSheetName)
	if err != nil {
		return err
	}
	if _, err := f.NewSheet(tname); err != nil {
		return fmt.Errorf("workbook: add transposed sheet: %w", err)
	}
	if err := e.writeTransposedSheet(f, tname, table, status); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("workbook: save %s: %w", path, err)
	}
	e.logger.Printf("workbook: results written to %s", path)
	return nil
}

// writeResultsSheet lays out one row per faulted busbar with the fixed
// column order.
func (e *Exporter) writeResultsSheet(f *excelize.File, sheet string, table *results.Table, status string) error {
	if err := setCell(f, sheet, 1, 1, status); err != nil {
		return err
	}

	header := 2
	if err := setCell(f, sheet, 1, header, "Busbar"); err != nil {
		return err
	}
	if err := setCell(f, sheet, 2, header, "Name"); err != nil {
		return err
	}
	cols := results.Columns()
	for i, field := range cols {
		label := fmt.Sprintf("%s (%s)", field.Label(), field.Unit(table.Unit))
		if err := setCell(f, sheet, 3+i, header, label); err != nil {
			return err
		}
	}

	for r, row := range table.Rows() {
		y := header + 1 + r
		if err := setCell(f, sheet, 1, y, row.Bus); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, y, row.Name); err != nil {
			return err
		}
		for i, field := range cols {
			if err := setCell(f, sheet, 3+i, y, row.Values[field]); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeTransposedSheet lays out one column per faulted busbar so results can
// be compared side by side.
func (e *Exporter) writeTransposedSheet(f *excelize.File, sheet string, table *results.Table, status string) error {
	if err := setCell(f, sheet, 1, 1, status); err != nil {
		return err
	}

	cols := results.Columns()
	if err := setCell(f, sheet, 1, 2, "Busbar"); err != nil {
		return err
	}
	if err := setCell(f, sheet, 1, 3, "Name"); err != nil {
		return err
	}
	for i, field := range cols {
		label := fmt.Sprintf("%s (%s)", field.Label(), field.Unit(table.Unit))
		if err := setCell(f, sheet, 1, 4+i, label); err != nil {
			return err
		}
	}

	for c, row := range table.Rows() {
		x := 2 + c
		if err := setCell(f, sheet, x, 2, row.Bus); err != nil {
			return err
		}
		if err := setCell(f, sheet, x, 3, row.Name); err != nil {
			return err
		}
		for i, field := range cols {
			if err := setCell(f, sheet, x, 4+i, row.Values[field]); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("workbook: cell (%d,%d): %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("workbook: set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
