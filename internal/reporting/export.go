package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/quangtran88/signalbot/internal/audit"
)

// ExportAuditXLSX writes the full audit trail to an Excel workbook.
func ExportAuditXLSX(records []audit.Record, path string) error {
	fx := excelize.NewFile()
	defer fx.Close()

	const sheet = "Signals"
	fx.SetSheetName(fx.GetSheetName(0), sheet)

	headStyle, _ := fx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	headers := []string{"Time", "Strategy", "Symbol", "Timeframe", "Direction", "Confidence", "Outcome", "Reason", "Order Ref", "Quantity"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, headStyle)
	}

	for i, rec := range records {
		row := i + 2
		values := []interface{}{
			rec.Time.Format("2006-01-02 15:04:05"),
			rec.Strategy,
			rec.Symbol,
			rec.Timeframe,
			rec.Direction,
			rec.Confidence,
			string(rec.Outcome),
			rec.Reason,
			rec.OrderRef,
			rec.Quantity,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save export to %s: %w", path, err)
	}
	return nil
}
