package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

const (
	pageMargin = 15.0
	rowHeight  = 7.0
	bandHeight = 30.0
	footerRoom = 12.0
)

var (
	bandColor  = [3]int{44, 62, 80}
	zebraColor = [3]int{242, 244, 246}
	mutedColor = [3]int{120, 120, 120}
)

type column struct {
	title string
	width float64
	align string
}

// document is an A4 page flow with a title band, a paginated table with
// striped rows and a page counter in the footer.
type document struct {
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	columns []column
	rows    int
}

func newDocument(title, subtitle string) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-footerRoom)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(mutedColor[0], mutedColor[1], mutedColor[2])
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	d.band(title, subtitle)
	return d
}

func (d *document) band(title, subtitle string) {
	pdf := d.pdf
	width, _ := pdf.GetPageSize()
	pdf.SetFillColor(bandColor[0], bandColor[1], bandColor[2])
	pdf.Rect(0, 0, width, bandHeight, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(pageMargin, 8)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 8, d.tr(title), "", 1, "L", false, 0, "")
	pdf.SetX(pageMargin)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, d.tr(subtitle), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetY(bandHeight + 8)
}

// table starts a new table; its header is repeated on every page.
func (d *document) table(columns ...column) {
	d.columns = columns
	d.rows = 0
	d.tableHeader()
}

func (d *document) tableHeader() {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(bandColor[0], bandColor[1], bandColor[2])
	pdf.SetTextColor(255, 255, 255)
	for _, c := range d.columns {
		pdf.CellFormat(c.width, rowHeight+1, d.tr(c.title), "", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func (d *document) row(values ...string) {
	pdf := d.pdf
	if d.ensureSpace(rowHeight) {
		d.tableHeader()
	}

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	fill := d.rows%2 == 1
	if fill {
		pdf.SetFillColor(zebraColor[0], zebraColor[1], zebraColor[2])
	}
	for i, c := range d.columns {
		var v string
		if i < len(values) {
			v = d.fit(values[i], c.width-2)
		}
		pdf.CellFormat(c.width, rowHeight, v, "", 0, c.align, fill, 0, "")
	}
	pdf.Ln(-1)
	d.rows++
}

// ensureSpace breaks the page when h more millimetres would not fit and
// reports whether it did.
func (d *document) ensureSpace(h float64) bool {
	_, height := d.pdf.GetPageSize()
	if d.pdf.GetY()+h <= height-pageMargin-footerRoom {
		return false
	}
	d.pdf.AddPage()
	d.pdf.SetY(pageMargin)
	return true
}

// fit translates s to the single-byte font encoding and shortens it with an
// ellipsis to the given width.
func (d *document) fit(s string, width float64) string {
	s = d.tr(s)
	if d.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// summary writes a right-aligned label and value pair below the table.
func (d *document) summary(label, value string, bold bool) {
	d.ensureSpace(rowHeight)
	style := ""
	if bold {
		style = "B"
	}
	d.pdf.SetFont("Helvetica", style, 10)
	d.pdf.CellFormat(130, rowHeight, d.tr(label), "", 0, "R", false, 0, "")
	d.pdf.CellFormat(50, rowHeight, d.tr(value), "", 1, "R", false, 0, "")
}

func (d *document) line(text string, style string) {
	d.ensureSpace(6)
	d.pdf.SetFont("Helvetica", style, 10)
	d.pdf.CellFormat(0, 6, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) gap() {
	d.pdf.Ln(4)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func generatedLine(at time.Time) string {
	return "Generated " + at.Format("2006-01-02 15:04")
}
