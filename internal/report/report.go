// =============================================================================
// SEPA Export - Run Report
// =============================================================================
//
// Writes an XLSX summary of one export run: one row per generated SEPA
// file with its reference, creation time, payment count, and control sum.
// The report is an operator convenience next to the XML artifacts; it is
// never read back by the engine.
//
// =============================================================================

package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Row is one generated file in the run summary.
type Row struct {
	Reference string
	CreatedAt time.Time
	Journal   string
	Payments  int
	Total     decimal.Decimal
	Currency  string
}

const sheetName = "Export"

var headers = []string{"Reference", "Created", "Journal", "Payments", "Total", "Currency"}

// Write creates the XLSX run summary at path.
func Write(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename report sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.Reference,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Journal,
			r.Payments,
			r.Total.StringFixed(2),
			r.Currency,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write report row %d: %w", i+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}
