package report

import (
	"time"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const pdfFontFamily = "ReportFont"

type PDF struct {
	title    string
	fontPath string
	now      func() time.Time
}

// NewPDF renders with the TTF font at fontPath when given. Without it the core
// Helvetica font is used, and text outside cp1252 is refused instead of dropped.
func NewPDF(title, fontPath string) *PDF {
	return &PDF{title: title, fontPath: fontPath, now: time.Now}
}

func (p *PDF) Format() string { return "pdf" }

func (p *PDF) Generate(orders []*models.Order, path string) error {
	if p.fontPath == "" {
		if err := p.checkCoreFont(orders); err != nil {
			return err
		}
	}
	doc := fpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	tr := func(s string) string { return s }
	if p.fontPath != "" {
		doc.AddUTF8Font(pdfFontFamily, "", p.fontPath)
		family = pdfFontFamily
	} else {
		tr = doc.UnicodeTranslatorFromDescriptor("cp1252")
	}
	if err := doc.Error(); err != nil {
		return errors.Wrap(err, "load report font")
	}

	doc.AddPage()
	doc.SetFont(family, "", 14)
	doc.CellFormat(0, 8, tr(p.title), "", 1, "L", false, 0, "")
	doc.SetFont(family, "", 10)
	doc.CellFormat(0, 6, tr(exportedAtLine(p.now())), "", 1, "L", false, 0, "")
	doc.Ln(6)

	left, _, right, _ := doc.GetMargins()
	pageW, _ := doc.GetPageSize()
	// на всю ширину страницы, id уже остальных
	widths := columnWidths(pageW - left - right)

	doc.SetFillColor(230, 230, 230)
	for i, c := range Columns {
		doc.CellFormat(widths[i], 7, tr(c), "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	for _, o := range orders {
		for i, v := range row(o) {
			doc.CellFormat(widths[i], 7, tr(v), "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}

	if err := doc.OutputFileAndClose(path); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

// checkCoreFont fails on the first value Helvetica cannot show.
func (p *PDF) checkCoreFont(orders []*models.Order) error {
	if !fitsCP1252(p.title) {
		return errors.Errorf("report title %q needs a unicode font: set report.font_path", p.title)
	}
	for _, o := range orders {
		for i, v := range row(o) {
			if !fitsCP1252(v) {
				return errors.Errorf("order %d %s %q needs a unicode font: set report.font_path", o.ID, Columns[i], v)
			}
		}
	}
	return nil
}

func fitsCP1252(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

func columnWidths(total float64) []float64 {
	idW := total * 0.08
	rest := (total - idW) / float64(len(Columns)-1)
	out := []float64{idW}
	for i := 1; i < len(Columns); i++ {
		out = append(out, rest)
	}
	return out
}
