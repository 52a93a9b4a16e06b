// Package export renders generated documents into the file formats
// teachers actually hand out: .pptx slide decks, .pdf posters and .docx
// assignments.
package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"classkitd/pkg/types"
)

const footerLine = "Generated by ClassKit Studio - Educational Use Only"

// WritePosterPDF renders the poster onto a single A4 page: centered title,
// filled section headings, bulleted bodies and an italic footer callout.
func WritePosterPDF(w io.Writer, p *types.Poster) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("poster: %w", err)
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(p.PosterTitle, true)
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(0, 0, 139)
	pdf.MultiCell(0, 12, tr(p.PosterTitle), "", "C", false)
	pdf.Ln(6)

	for _, sec := range p.Sections {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFillColor(70, 130, 180)
		pdf.MultiCell(0, 10, tr(sec.Heading), "", "L", true)
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
		for _, b := range sec.BodyBullets {
			pdf.MultiCell(0, 7, tr("- "+b), "", "L", false)
		}
		pdf.Ln(5)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(128, 128, 128)
	if p.FooterCallout != "" {
		pdf.MultiCell(0, 6, tr(p.FooterCallout), "", "C", false)
	}
	pdf.MultiCell(0, 6, tr(footerLine), "", "C", false)

	return pdf.Output(w)
}
