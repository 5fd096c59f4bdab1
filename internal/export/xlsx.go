// Package export renders tender search results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// ContentType is the media type of the XLSX workbook written by WriteTenders.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the name of the worksheet holding the tender rows.
const SheetName = "Tenders"

// Header is the first row of the export.
var Header = []interface{}{
	"ID", "Title", "Buyer", "Province", "Budget Min", "Budget Max",
	"Currency", "Deadline", "Published", "Status", "Categories", "OCDS ID",
}

// FileName returns the attachment name for an export generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("tenders-%s.xlsx", now.UTC().Format("20060102-150405"))
}

// WriteTenders writes tenders as an XLSX workbook with one row per tender.
func WriteTenders(w io.Writer, tenders []*models.Tender) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := Header
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Header), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, bold)
	}

	for i, t := range tenders {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		excelRow := []interface{}{
			t.ID,
			t.Title,
			t.Buyer,
			t.Province,
			budgetCell(t.BudgetMin),
			budgetCell(t.BudgetMax),
			t.Currency,
			t.Deadline.UTC().Format(time.RFC3339),
			t.PublishedDate.UTC().Format(time.RFC3339),
			t.Status,
			strings.Join(t.Categories, ", "),
			stringCell(t.OCDSID),
		}
		if err := f.SetSheetRow(SheetName, cell, &excelRow); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(SheetName, "B", "C", 45)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func budgetCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stringCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
