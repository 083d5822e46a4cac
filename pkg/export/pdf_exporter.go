package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets and single-record profiles as A4 PDFs.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a landscape table document with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errNoHeaders
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	e.footer(pdf)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	colWidth := 277.0 / float64(len(data.Headers))
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i := 0; i < data.Len(); i++ {
		if pdf.GetY()+7 > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}
		for _, v := range data.Values(i) {
			pdf.CellFormat(colWidth, 7, tr(truncate(v, 40)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// Field is one labelled line on a profile.
type Field struct {
	Label string
	Value string
}

// Section groups profile fields under a heading.
type Section struct {
	Heading string
	Fields  []Field
}

// Profile describes a printable one-record sheet.
type Profile struct {
	Title    string
	Subtitle string
	Photo    io.Reader
	Sections []Section
}

// RenderProfile lays out a portrait record sheet. Photo, when set, must be JPEG.
func (e *PDFExporter) RenderProfile(p Profile) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	e.footer(pdf)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 9, tr(p.Title), "", 1, "C", false, 0, "")
	if p.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, tr(p.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	labelWidth := 55.0
	if p.Photo != nil {
		info := pdf.RegisterImageOptionsReader("photo", gofpdf.ImageOptions{ImageType: "JPG"}, p.Photo)
		if pdf.Ok() && info != nil {
			pdf.ImageOptions("photo", 155, pdf.GetY(), 40, 0, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		} else {
			pdf.ClearError()
		}
	}

	for _, section := range p.Sections {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(130, 8, tr(section.Heading), "B", 1, "", false, 0, "")
		for _, f := range section.Fields {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(labelWidth, 6, tr(f.Label), "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			value := f.Value
			if value == "" {
				value = "-"
			}
			pdf.CellFormat(75, 6, tr(value), "", 1, "", false, 0, "")
		}
		pdf.Ln(3)
	}

	return output(pdf)
}

func (e *PDFExporter) footer(pdf *gofpdf.Fpdf) {
	generated := e.now().Format("2006-01-02 15:04")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s - page %d", generated, pdf.PageNo()), "", 0, "R", false, 0, "")
	})
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
