package certificate

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Certificates"

var ledgerHeader = []any{
	"Issued", "Name", "Email", "Title", "Score (%)", "KIU", "Level", "Source", "Verification Code",
}

// ExportLedger writes records to an XLSX workbook, one row per certificate.
func ExportLedger(records []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(ledgerSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range records {
		source := ""
		if r.Source != nil {
			source = r.Source.Type
			if r.Source.URL != "" {
				source += " " + r.Source.URL
			}
		}
		row := []any{
			r.Date.Format(DateLayout),
			r.Name,
			r.Email,
			r.Title,
			r.Score,
			r.KIU.GraduatedScore,
			string(r.KIU.Level),
			source,
			r.VerificationCode,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ledgerSheet, "A", "I", 18); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
