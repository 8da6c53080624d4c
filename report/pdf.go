package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/warp/monotax/ledger"
)

// WriteQuarterlyPDF renders the quarterly report as a one-table A4 document.
// Only built-in Helvetica is used, so text is limited to Latin-1.
func WriteQuarterlyPDF(w io.Writer, r ledger.QuarterlyReport, title string, generated time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("{nb}")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	marginL, marginT, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR

	// Header bar
	pdf.SetFillColor(30, 30, 30)
	pdf.Rect(marginL, marginT, contentW, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(contentW-4, 7, title, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(marginL, marginT+12)
	pdf.CellFormat(contentW, 5, "Generated "+generated.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	periodW := contentW * 0.2
	colW := (contentW - periodW) / 4

	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.CellFormat(periodW, 7, "Quarter", "1", 0, "L", true, 0, "")
	for i, h := range quarterlyHeader[2:] {
		ln := 0
		if i == 3 {
			ln = 1
		}
		pdf.CellFormat(colW, 7, h, "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "", 8.5)
	for i, line := range r.Lines {
		if i%2 == 0 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.CellFormat(periodW, 6.5, line.Key().String(), "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW, 6.5, money(line.TotalIncome), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW, 6.5, money(line.CumulativeIncome), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW, 6.5, money(line.TotalTax), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW, 6.5, money(line.CumulativeTax), "1", 1, "R", true, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(periodW, 7, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW, 7, money(r.TotalIncome), "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW, 7, "", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW, 7, money(r.TotalTax), "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW, 7, "", "1", 1, "R", true, 0, "")

	return pdf.Output(w)
}
