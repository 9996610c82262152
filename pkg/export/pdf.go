package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 277.0 // A4 landscape minus 10mm margins

// PDF renders the table on landscape A4 pages. The header row repeats on
// every page.
func PDF(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, ErrNoColumns
	}
	widths := columnWidths(table.Columns)
	labels := table.labels()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	// Core fonts are cp1252; non-latin names would otherwise render as mojibake.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, label := range labels {
			pdf.CellFormat(widths[i], 8, tr(label), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	if !table.GeneratedAt.IsZero() {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-10)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s - page %d", table.GeneratedAt.Format("2006-01-02 15:04 MST"), pdf.PageNo()), "", 0, "R", false, 0, "")
		})
	}

	pdf.AddPage()
	if table.Title != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 9, tr(table.Title), "", 1, "L", false, 0, "")
	}
	if table.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(table.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	header()

	for _, row := range table.Rows {
		if row.Highlight {
			pdf.SetFillColor(253, 226, 226)
		}
		for i, value := range table.record(row) {
			align := "L"
			if i > 0 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, align, row.Highlight, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column) []float64 {
	var total float64
	for _, c := range cols {
		total += weight(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = pageWidth * weight(c) / total
	}
	return out
}

func weight(c Column) float64 {
	if c.Width <= 0 {
		return 1
	}
	return c.Width
}
