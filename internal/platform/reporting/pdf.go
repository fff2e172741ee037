package reporting

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

var pdfWidths = []float64{60, 28, 35, 18, 39}

// RenderPDF lays the report out on A4 portrait pages with a repeating
// table header.
func RenderPDF(r Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title(), true)
	pdf.SetCreator("healthwatch", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 243, 255)
		for i, col := range columns {
			pdf.CellFormat(pdfWidths[i], 8, col, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.Title()), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Date: "+r.Date.Format("2006-01-02"), "", 1, "L", false, 0, "")
	if r.GeneratedBy != "" {
		pdf.CellFormat(0, 6, tr("Generated by: "+r.GeneratedBy), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Low: %d    Medium: %d    High: %d",
		r.Stats.Low, r.Stats.Medium, r.Stats.High), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	header()
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range r.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, cell := range row.cells() {
			align := "L"
			if i > 0 {
				align = "C"
			}
			pdf.CellFormat(pdfWidths[i], 7, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Rows) == 0 {
		pdf.CellFormat(0, 7, "No observations recorded.", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
