// Package pdf renders invoice and waybill documents as A4 PDFs using
// company profile data for branding. Documents are generated on demand
// and never persisted.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/somagec/quarrystock/internal/models"
)

const marginMM = 15

func newDoc() *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(marginMM, marginMM, marginMM)
	doc.AddPage()
	return doc
}

func header(doc *fpdf.Fpdf, profile *models.CompanyProfile, title string) {
	pageW, _ := doc.GetPageSize()
	contentW := pageW - 2*marginMM

	name := "Quarry"
	if profile != nil && profile.CompanyName != "" {
		name = profile.CompanyName
	}
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(contentW, 8, name, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	if profile != nil {
		if profile.Address != "" {
			doc.CellFormat(contentW, 5, profile.Address, "", 1, "L", false, 0, "")
		}
		line := ""
		if profile.TaxID != "" {
			line = "NIF: " + profile.TaxID
		}
		if profile.Phone != "" {
			if line != "" {
				line += "  |  "
			}
			line += profile.Phone
		}
		if profile.Email != "" {
			if line != "" {
				line += "  |  "
			}
			line += profile.Email
		}
		if line != "" {
			doc.CellFormat(contentW, 5, line, "", 1, "L", false, 0, "")
		}
	}
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(contentW, 8, title, "", 1, "C", false, 0, "")
	doc.Ln(2)
}

func totalRow(doc *fpdf.Fpdf, labelW, valueW float64, label string, value decimal.Decimal, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	doc.SetFont("Helvetica", style, 10)
	doc.CellFormat(labelW, 6, label, "", 0, "R", false, 0, "")
	doc.CellFormat(valueW, 6, value.StringFixed(2), "", 1, "R", false, 0, "")
}

// Invoice renders one invoice document.
func Invoice(inv *models.Invoice, profile *models.CompanyProfile) ([]byte, error) {
	doc := newDoc()
	header(doc, profile, fmt.Sprintf("Invoice %s", inv.Number))

	pageW, _ := doc.GetPageSize()
	contentW := pageW - 2*marginMM

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(contentW, 5, "Client: "+inv.Client.Name, "", 1, "L", false, 0, "")
	if inv.Client.TaxID != "" {
		doc.CellFormat(contentW, 5, "NIF: "+inv.Client.TaxID, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(contentW, 5, "Issue date: "+inv.IssueDate.Format("02/01/2006"), "", 1, "L", false, 0, "")
	doc.Ln(4)

	// item table
	col1 := contentW * 0.42 // product
	col2 := contentW * 0.14 // qty
	col3 := contentW * 0.10 // unit
	col4 := contentW * 0.16 // unit price
	col5 := contentW * 0.18 // subtotal
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(col1, 6, "Product", "B", 0, "L", false, 0, "")
	doc.CellFormat(col2, 6, "Qty", "B", 0, "R", false, 0, "")
	doc.CellFormat(col3, 6, "Unit", "B", 0, "C", false, 0, "")
	doc.CellFormat(col4, 6, "Unit price", "B", 0, "R", false, 0, "")
	doc.CellFormat(col5, 6, "Subtotal", "B", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	for _, it := range inv.Items {
		doc.CellFormat(col1, 6, it.Product.Label(), "", 0, "L", false, 0, "")
		doc.CellFormat(col2, 6, it.Quantity.StringFixed(2), "", 0, "R", false, 0, "")
		doc.CellFormat(col3, 6, it.Product.Unit, "", 0, "C", false, 0, "")
		doc.CellFormat(col4, 6, it.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		doc.CellFormat(col5, 6, it.Subtotal().StringFixed(2), "", 1, "R", false, 0, "")
	}
	doc.Ln(3)

	labelW := contentW - col5
	totalRow(doc, labelW, col5, "Subtotal", inv.Subtotal(), false)
	if inv.DiscountRate.IsPositive() {
		totalRow(doc, labelW, col5, fmt.Sprintf("Discount (%s%%)", inv.DiscountRate.StringFixed(2)), inv.DiscountAmount().Neg(), false)
	}
	totalRow(doc, labelW, col5, fmt.Sprintf("Tax (%s%%)", inv.TaxRate.StringFixed(2)), inv.TaxAmount(), false)
	totalRow(doc, labelW, col5, "Total", inv.Total(), true)
	if inv.Advance.IsPositive() {
		totalRow(doc, labelW, col5, "Advance", inv.Advance.Neg(), false)
		totalRow(doc, labelW, col5, "Amount due", inv.AmountDue(), true)
	}

	if profile != nil && profile.PaymentDetails != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "", 8)
		doc.MultiCell(contentW, 4, "Payment: "+profile.PaymentDetails, "", "L", false)
	}
	if inv.Paid {
		doc.Ln(4)
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(contentW, 6, "PAID", "", 1, "L", false, 0, "")
	}
	return output(doc)
}

// Waybill renders one transport document. Quantities only, no prices.
func Waybill(wb *models.Waybill, profile *models.CompanyProfile) ([]byte, error) {
	doc := newDoc()
	header(doc, profile, fmt.Sprintf("Transport Waybill %s", wb.Number))

	pageW, _ := doc.GetPageSize()
	contentW := pageW - 2*marginMM

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(contentW, 5, "Client: "+wb.Invoice.Client.Name, "", 1, "L", false, 0, "")
	doc.CellFormat(contentW, 5, "Invoice: "+wb.Invoice.Number, "", 1, "L", false, 0, "")
	doc.CellFormat(contentW, 5, "Issue date: "+wb.IssueDate.Format("02/01/2006"), "", 1, "L", false, 0, "")
	doc.Ln(2)
	if wb.LoadingAddress != "" {
		doc.CellFormat(contentW, 5, "Loading: "+wb.LoadingAddress, "", 1, "L", false, 0, "")
	}
	if wb.UnloadingAddress != "" {
		doc.CellFormat(contentW, 5, "Unloading: "+wb.UnloadingAddress, "", 1, "L", false, 0, "")
	}
	if wb.VehiclePlate != "" {
		doc.CellFormat(contentW, 5, "Vehicle plate: "+wb.VehiclePlate, "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	col1 := contentW * 0.64
	col2 := contentW * 0.20
	col3 := contentW * 0.16
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(col1, 6, "Product", "B", 0, "L", false, 0, "")
	doc.CellFormat(col2, 6, "Quantity", "B", 0, "R", false, 0, "")
	doc.CellFormat(col3, 6, "Unit", "B", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	for _, it := range wb.Items {
		doc.CellFormat(col1, 6, it.Product.Label(), "", 0, "L", false, 0, "")
		doc.CellFormat(col2, 6, it.Quantity.StringFixed(2), "", 0, "R", false, 0, "")
		doc.CellFormat(col3, 6, it.Product.Unit, "", 1, "C", false, 0, "")
	}

	doc.Ln(12)
	half := contentW / 2
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(half, 6, "Driver signature: ____________________", "", 0, "L", false, 0, "")
	doc.CellFormat(half, 6, "Received by: ____________________", "", 1, "L", false, 0, "")
	return output(doc)
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
