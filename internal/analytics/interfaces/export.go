package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analytics "prepaid-meter-cloud/internal/analytics/domain"
)

// BuildUsagePDF renders a minimal PDF usage statement for a user.
func BuildUsagePDF(userID string, summaries []*analytics.PeriodSummary, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Usage Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("User: %s", userID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Start", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Energy (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Peak (kW)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Cost", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, summary := range summaries {
		pdf.CellFormat(30, 6, string(summary.PeriodType), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, summary.StartDate.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, summary.TotalEnergyKWh.StringFixed(3), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, summary.PeakPowerKW.StringFixed(3), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, summary.TotalCost.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", summary.ReadingCount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildUsageXLSX renders a minimal XLSX usage statement for a user.
func BuildUsageXLSX(userID string, summaries []*analytics.PeriodSummary, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "usage"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Usage Statement")
	_ = f.SetCellValue(sheet, "A2", "User")
	_ = f.SetCellValue(sheet, "B2", userID)
	_ = f.SetCellValue(sheet, "A3", "Generated")
	_ = f.SetCellValue(sheet, "B3", generatedAt.Format(time.RFC3339))

	_ = f.SetCellValue(sheet, "A5", "Type")
	_ = f.SetCellValue(sheet, "B5", "Start")
	_ = f.SetCellValue(sheet, "C5", "End")
	_ = f.SetCellValue(sheet, "D5", "Energy (kWh)")
	_ = f.SetCellValue(sheet, "E5", "Avg Power (kW)")
	_ = f.SetCellValue(sheet, "F5", "Peak Power (kW)")
	_ = f.SetCellValue(sheet, "G5", "Cost")
	_ = f.SetCellValue(sheet, "H5", "Readings")
	for i, summary := range summaries {
		row := i + 6
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(summary.PeriodType))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), summary.StartDate.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), summary.EndDate.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), summary.TotalEnergyKWh.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), summary.AveragePowerKW.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), summary.PeakPowerKW.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), summary.TotalCost.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), summary.ReadingCount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
