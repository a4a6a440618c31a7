package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return v
}

func TestInvoiceDerivedChain(t *testing.T) {
	inv := Invoice{
		TaxRate:      d(t, "17.00"),
		DiscountRate: d(t, "0.00"),
		Items: []InvoiceItem{
			{Quantity: d(t, "30"), UnitPrice: d(t, "10.00")},
		},
	}
	if got := inv.Subtotal(); !got.Equal(d(t, "300.00")) {
		t.Fatalf("subtotal = %s, want 300.00", got)
	}
	if got := inv.TaxAmount(); !got.Equal(d(t, "51.00")) {
		t.Fatalf("tax = %s, want 51.00", got)
	}
	if got := inv.Total(); !got.Equal(d(t, "351.00")) {
		t.Fatalf("total = %s, want 351.00", got)
	}
	if got := inv.AmountDue(); !got.Equal(d(t, "351.00")) {
		t.Fatalf("amount due = %s, want 351.00", got)
	}
}

func TestInvoiceDiscountAppliedBeforeTax(t *testing.T) {
	inv := Invoice{
		TaxRate:      d(t, "17.00"),
		DiscountRate: d(t, "10.00"),
		Advance:      d(t, "50.00"),
		Items: []InvoiceItem{
			{Quantity: d(t, "10"), UnitPrice: d(t, "10.00")},
		},
	}
	if got := inv.DiscountAmount(); !got.Equal(d(t, "10.00")) {
		t.Fatalf("discount = %s, want 10.00", got)
	}
	if got := inv.SubtotalAfterDiscount(); !got.Equal(d(t, "90.00")) {
		t.Fatalf("after discount = %s, want 90.00", got)
	}
	// tax on the discounted base, not the raw subtotal
	if got := inv.TaxAmount(); !got.Equal(d(t, "15.30")) {
		t.Fatalf("tax = %s, want 15.30", got)
	}
	if got := inv.Total(); !got.Equal(d(t, "105.30")) {
		t.Fatalf("total = %s, want 105.30", got)
	}
	if got := inv.AmountDue(); !got.Equal(d(t, "55.30")) {
		t.Fatalf("amount due = %s, want 55.30", got)
	}
}

func TestAmountDueFloorsAtZero(t *testing.T) {
	inv := Invoice{
		TaxRate: d(t, "0"),
		Advance: d(t, "500.00"),
		Items:   []InvoiceItem{{Quantity: d(t, "1"), UnitPrice: d(t, "100.00")}},
	}
	if got := inv.AmountDue(); !got.Equal(decimal.Zero) {
		t.Fatalf("amount due = %s, want 0", got)
	}
}

func TestRoundingToCents(t *testing.T) {
	inv := Invoice{
		TaxRate:      d(t, "17.00"),
		DiscountRate: d(t, "3.00"),
		Items:        []InvoiceItem{{Quantity: d(t, "3"), UnitPrice: d(t, "3.33")}},
	}
	// 9.99 * 3% = 0.2997 -> 0.30
	if got := inv.DiscountAmount(); !got.Equal(d(t, "0.30")) {
		t.Fatalf("discount = %s, want 0.30", got)
	}
	// 9.69 * 17% = 1.6473 -> 1.65
	if got := inv.TaxAmount(); !got.Equal(d(t, "1.65")) {
		t.Fatalf("tax = %s, want 1.65", got)
	}
}

func TestProductLabel(t *testing.T) {
	if got := (Product{Name: "Brita", Grade: "8/16"}).Label(); got != "Brita (8/16)" {
		t.Fatalf("label = %s", got)
	}
	if got := (Product{Name: "Areia"}).Label(); got != "Areia" {
		t.Fatalf("label = %s", got)
	}
}
