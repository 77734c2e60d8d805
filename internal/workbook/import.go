// Package workbook handles the spreadsheet artifacts of a fault study: the
// busbar-list input, the results workbook with its transposed companion
// sheet, and the PDF sign-off summary.
package workbook

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// errorSentinel marks a busbar cell that could not be read as a number.
const errorSentinel = -1

// BusbarList is the outcome of importing a busbar-list spreadsheet. Errors
// holds one message per non-numeric cell; those cells are excluded from
// Buses but never silently dropped.
type BusbarList struct {
	// Buses are the successfully parsed busbar numbers in column order.
	Buses []int
	// Column is the full coerced column, with errorSentinel in place of
	// each non-numeric cell.
	Column []int
	Errors []string
}

// ImportBusbarList reads busbar numbers from the first column of the first
// sheet of the workbook at path.
func ImportBusbarList(path string, logger *log.Logger) (BusbarList, error) {
	if logger == nil {
		logger = log.Default()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return BusbarList{}, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return BusbarList{}, fmt.Errorf("workbook: %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return BusbarList{}, fmt.Errorf("workbook: read %s!%s: %w", path, sheets[0], err)
	}

	var list BusbarList
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(row[0])
		if cell == "" {
			continue
		}
		bus, ok := parseBusNumber(cell)
		if !ok {
			msg := fmt.Sprintf("row %d: %q is not a busbar number", i+1, cell)
			list.Errors = append(list.Errors, msg)
			logger.Printf("workbook: busbar list %s", msg)
			list.Column = append(list.Column, errorSentinel)
			continue
		}
		list.Column = append(list.Column, bus)
		list.Buses = append(list.Buses, bus)
	}
	return list, nil
}

// parseBusNumber accepts integer cells and float cells with no fractional
// part, which spreadsheets are prone to producing.
func parseBusNumber(cell string) (int, bool) {
	if n, err := strconv.Atoi(cell); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
