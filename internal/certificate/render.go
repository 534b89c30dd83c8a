package certificate

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 297.0
	pageHeight = 210.0
)

// Render lays the document out on an A4 landscape page and returns the PDF.
func Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject("Certificate of Achievement", true)
	pdf.SetKeywords(doc.VerificationCode, true)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFillColor(252, 253, 254)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")

	pdf.SetDrawColor(37, 99, 235)
	pdf.SetLineWidth(2)
	pdf.Rect(15, 15, 267, 180, "D")

	pdf.SetDrawColor(59, 130, 246)
	pdf.SetLineWidth(0.5)
	pdf.Rect(20, 20, 257, 170, "D")

	centered := func(y float64, style string, size float64, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, size*0.45, tr(text), "", 0, "C", false, 0, "")
	}

	pdf.SetTextColor(30, 64, 175)
	centered(40, "B", 40, "Certificate of Achievement")
	pdf.SetDrawColor(30, 64, 175)
	pdf.Line(74, 55, 223, 55)

	pdf.SetTextColor(31, 41, 55)
	centered(72, "", 24, "This is to certify that")
	centered(86, "B", 32, doc.Name)
	centered(109, "", 16, "has successfully completed")
	centered(122, "B", 24, doc.Title)
	centered(140, "", 18, fmt.Sprintf("with a score of %d%%", doc.Score))
	centered(151, "", 14, "Knowledge Impact Units (KIU): "+strconv.FormatFloat(doc.KIU, 'f', -1, 64))
	centered(158, "", 14, "Level: "+doc.Level)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY((pageWidth-200)/2, 166)
	pdf.MultiCell(200, 4.5, tr(doc.Summary), "", "C", false)

	centered(182, "", 14, "Issued on "+doc.IssuedOn)

	pdf.SetTextColor(107, 114, 128)
	centered(189, "", 8, "Verification code: "+doc.VerificationCode)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
