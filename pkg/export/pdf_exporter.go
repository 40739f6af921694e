package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Field is one label/value line in a document summary block.
type Field struct {
	Label string
	Value string
}

// Document describes a single-page report: title, summary block, table.
type Document struct {
	Title   string
	Summary []Field
	Table   Dataset
	Footer  string
}

// PDFExporter renders documents with gofpdf.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates an A4 portrait PDF. The table is omitted when it has no headers.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" && len(doc.Summary) == 0 && len(doc.Table.Headers) == 0 {
		return nil, fmt.Errorf("pdf document is empty")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	if len(doc.Summary) > 0 {
		for _, f := range doc.Summary {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(55, 7, f.Label, "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 7, f.Value, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	if len(doc.Table.Headers) > 0 {
		colWidth := 190.0 / float64(len(doc.Table.Headers))
		pdf.SetFont("Arial", "B", 10)
		for _, header := range doc.Table.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range doc.Table.Rows {
			for i := range doc.Table.Headers {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if doc.Footer != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, doc.Footer, "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
