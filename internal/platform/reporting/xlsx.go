package reporting

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	ObservationsSheet = "Observations"
	SummarySheet      = "Summary"
)

var xlsxWidths = []float64{30, 14, 16, 10, 20}

// RenderXLSX writes the rows to an Observations sheet (header in row 1)
// and the title and counts to a Summary sheet.
func RenderXLSX(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(ObservationsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ObservationsSheet, cell, col); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ObservationsSheet, name, name, xlsxWidths[i]); err != nil {
			return nil, fmt.Errorf("set width %s: %w", name, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(ObservationsSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, row := range r.Rows {
		var temp interface{} = "-"
		if row.Temperature != nil {
			temp = *row.Temperature
		}
		values := []interface{}{row.MemberName, temp, row.RiskLevelDisplay, row.RiskScore, formatTime(row.ObservedAt)}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ObservationsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(ObservationsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	summary := [][]interface{}{
		{"Report", r.Title()},
		{"Date", r.Date.Format("2006-01-02")},
		{"Low", r.Stats.Low},
		{"Medium", r.Stats.Medium},
		{"High", r.Stats.High},
	}
	for i, values := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}
