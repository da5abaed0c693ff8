package services

import (
	"fmt"
	"io"
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/go-pdf/fpdf"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders amount with the currency symbol, falling back to the
// raw code for currencies x/text does not know.
func FormatMoney(code string, amount float64) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}
	return moneyPrinter.Sprint(currency.Symbol(unit.Amount(amount)))
}

// RenderInvoicePDF writes a single-page A4 invoice.
func RenderInvoicePDF(w io.Writer, inv *models.Invoice, issuer string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(inv.Number, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 10, tr("Invoice "+inv.Number))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	meta := [][2]string{
		{"From", issuer},
		{"Bill to", inv.ClientName},
		{"Issued", inv.IssueDate.Format(time.DateOnly)},
		{"Due", inv.DueDate.Format(time.DateOnly)},
		{"Period", inv.PeriodStart.Format(time.DateOnly) + " to " + inv.PeriodEnd.Format(time.DateOnly)},
		{"Status", inv.Status},
	}
	for _, m := range meta {
		pdf.CellFormat(35, 7, tr(m[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(m[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	widths := []float64{95, 25, 35, 35}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Hours", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(widths[0], 7, tr(it.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%.2f", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, tr(FormatMoney(inv.Currency, it.UnitPrice)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, tr(FormatMoney(inv.Currency, it.Amount)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totals := [][2]string{
		{"Subtotal", FormatMoney(inv.Currency, inv.Subtotal)},
		{fmt.Sprintf("Tax (%.2f%%)", inv.TaxRate), FormatMoney(inv.Currency, inv.TaxAmount)},
		{"Total", FormatMoney(inv.Currency, inv.Total)},
	}
	for i, t := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Helvetica", "B", 11)
		}
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, t[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, tr(t[1]), "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, tr(inv.Notes), "", "L", false)
	}

	return pdf.Output(w)
}
