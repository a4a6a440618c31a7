package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a billing document ("fatura"). The financial fields are
// never stored: they are derived from the line items on read so they
// cannot drift from their inputs.
type Invoice struct {
	ID           uint   `gorm:"primaryKey"`
	Number       string `gorm:"size:50;not null;uniqueIndex"` // <year>-<4 digit seq>, immutable once assigned
	ClientID     uint   `gorm:"not null;index"`
	Client       Client `gorm:"foreignKey:ClientID"`
	CreatedByID  *uint
	CreatedBy    *User `gorm:"foreignKey:CreatedByID"`
	UpdatedByID  *uint
	UpdatedBy    *User         `gorm:"foreignKey:UpdatedByID"`
	IssueDate    time.Time     `gorm:"not null;index"`
	Paid         bool          `gorm:"not null;default:false"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:17"` // percent
	DiscountRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`  // percent
	Advance      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Items        []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InvoiceItem captures quantity and unit price at issuance time, so
// later product price changes do not alter past invoices.
type InvoiceItem struct {
	ID        uint            `gorm:"primaryKey"`
	InvoiceID uint            `gorm:"not null;index"`
	ProductID uint            `gorm:"not null;index"`
	Product   Product         `gorm:"foreignKey:ProductID"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

// Subtotal is quantity x unit price for one line.
func (it InvoiceItem) Subtotal() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

var hundred = decimal.NewFromInt(100)

// Subtotal sums the line subtotals.
func (inv Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range inv.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// DiscountAmount is subtotal x discount rate / 100, rounded to cents.
func (inv Invoice) DiscountAmount() decimal.Decimal {
	return inv.Subtotal().Mul(inv.DiscountRate).Div(hundred).Round(2)
}

// SubtotalAfterDiscount is subtotal minus the discount amount.
func (inv Invoice) SubtotalAfterDiscount() decimal.Decimal {
	return inv.Subtotal().Sub(inv.DiscountAmount())
}

// TaxAmount applies the tax rate to the discounted subtotal.
func (inv Invoice) TaxAmount() decimal.Decimal {
	return inv.SubtotalAfterDiscount().Mul(inv.TaxRate).Div(hundred).Round(2)
}

// Total is the discounted subtotal plus tax.
func (inv Invoice) Total() decimal.Decimal {
	return inv.SubtotalAfterDiscount().Add(inv.TaxAmount())
}

// AmountDue is the total minus the advance payment, floored at zero.
func (inv Invoice) AmountDue() decimal.Decimal {
	due := inv.Total().Sub(inv.Advance)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
