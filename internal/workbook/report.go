package workbook

import (
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"

	"g74-faultstudy/internal/results"
)

// WriteReport renders the sign-off PDF summary of a study: case identity,
// fault times, status, accumulated data-quality warnings and the result
// table.
func (e *Exporter) WriteReport(path, caseName, status string, warnings []string, table *results.Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Breaker Duty Fault Study")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Case: %s", caseName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Make time: %.3f s   Break time: %.3f s", table.MakeTime, table.BreakTime))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Current unit: %s", table.Unit))
	pdf.Ln(8)

	if len(warnings) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Data quality warnings (%d)", len(warnings)))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		for _, w := range warnings {
			pdf.Cell(0, 5, "- "+w)
			pdf.Ln(4)
		}
		pdf.Ln(4)
	}

	cols := results.Columns()
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(20, 6, "Busbar", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Name", "1", 0, "C", false, 0, "")
	for _, field := range cols {
		pdf.CellFormat(42, 6, fmt.Sprintf("%s (%s)", field.Label(), field.Unit(table.Unit)), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range table.Rows() {
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", row.Bus), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, row.Name, "1", 0, "L", false, 0, "")
		for _, field := range cols {
			pdf.CellFormat(42, 6, fmt.Sprintf("%.4f", row.Values[field]), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("workbook: create report %s: %w", path, err)
	}
	defer f.Close()
	if err := pdf.Output(f); err != nil {
		return fmt.Errorf("workbook: render report %s: %w", path, err)
	}
	e.logger.Printf("workbook: report written to %s", path)
	return nil
}
