package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/models"
)

// LineInput is one requested invoice line. Quantity and unit price are
// captured on the invoice item at issuance time.
type LineInput struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// IssueInput is the typed input for issuing or editing an invoice.
type IssueInput struct {
	ClientID     uint            `json:"client_id"`
	IssueDate    time.Time       `json:"issue_date"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Advance      decimal.Decimal `json:"advance"`
	Lines        []LineInput     `json:"lines"`
}

// InvoiceService owns the stock-adjusting invoice transactions.
type InvoiceService struct {
	DB *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService { return &InvoiceService{DB: db} }

func (s *InvoiceService) validate(in IssueInput) error {
	if in.ClientID == 0 {
		return &ValidationError{Field: "client", Reason: "required"}
	}
	if len(in.Lines) == 0 {
		return &ValidationError{Field: "lines", Reason: "empty"}
	}
	for _, l := range in.Lines {
		if l.ProductID == 0 {
			return &ValidationError{Field: "product", Reason: "required"}
		}
		if !l.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", Reason: "must_be_positive"}
		}
		if l.UnitPrice.IsNegative() {
			return &ValidationError{Field: "unit_price", Reason: "must_not_be_negative"}
		}
	}
	if in.TaxRate.IsNegative() || in.DiscountRate.IsNegative() || in.Advance.IsNegative() {
		return &ValidationError{Field: "rates", Reason: "must_not_be_negative"}
	}
	return nil
}

// applyLines creates one invoice item per request and decrements stock.
// Runs inside the caller's transaction. The decrement is guarded with
// stock >= quantity so a concurrent issuance cannot overdraw: if the
// guarded update matches no row the stock moved under us and the whole
// transaction rolls back.
func applyLines(tx *gorm.DB, invoiceID uint, lines []LineInput) error {
	for _, l := range lines {
		var product models.Product
		if err := tx.First(&product, l.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "product", Reason: "unknown"}
			}
			return err
		}
		if product.Stock.LessThan(l.Quantity) {
			return &InsufficientStockError{Product: product.Label(), Available: product.Stock}
		}
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", product.ID, l.Quantity).
			Update("stock", gorm.Expr("stock - ?", l.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InsufficientStockError{Product: product.Label(), Available: product.Stock}
		}
		item := models.InvoiceItem{
			InvoiceID: invoiceID,
			ProductID: product.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}
	return nil
}

// restoreLines adds each item's quantity back to its product.
func restoreLines(tx *gorm.DB, items []models.InvoiceItem) error {
	for _, it := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ?", it.ProductID).
			Update("stock", gorm.Expr("stock + ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// Issue creates an invoice with the next sequential number, one item
// per requested line, and decrements each product's stock. The whole
// operation is one transaction: a failure partway through leaves the
// database as if it never started.
func (s *InvoiceService) Issue(userID uint, in IssueInput) (*models.Invoice, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	var created models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, in.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "client", Reason: "unknown"}
			}
			return err
		}
		number, err := NextNumber(tx, issueDate.Year(), &models.Invoice{}, "number")
		if err != nil {
			return err
		}
		created = models.Invoice{
			Number:       number,
			ClientID:     client.ID,
			CreatedByID:  &userID,
			IssueDate:    issueDate,
			TaxRate:      in.TaxRate,
			DiscountRate: in.DiscountRate,
			Advance:      in.Advance,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return applyLines(tx, created.ID, in.Lines)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(created.ID)
}

// Edit reverses the stock effect of every existing line, deletes them,
// then re-validates and re-applies the new lines exactly as in
// issuance. Reverse-then-reapply is atomic as a whole: on any failure
// the invoice keeps its prior state, reversal included.
func (s *InvoiceService) Edit(userID uint, invoiceID uint, in IssueInput) (*models.Invoice, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Preload("Items").First(&inv, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var client models.Client
		if err := tx.First(&client, in.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Field: "client", Reason: "unknown"}
			}
			return err
		}
		if err := restoreLines(tx, inv.Items); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		updates := map[string]any{
			"client_id":     in.ClientID,
			"tax_rate":      in.TaxRate,
			"discount_rate": in.DiscountRate,
			"advance":       in.Advance,
			"updated_by_id": userID,
		}
		if err := tx.Model(&inv).Updates(updates).Error; err != nil {
			return err
		}
		return applyLines(tx, inv.ID, in.Lines)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(invoiceID)
}

// TogglePaid flips the paid flag and records the modifying user. No
// other side effects, no stock impact.
func (s *InvoiceService) TogglePaid(userID uint, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.DB.First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.DB.Model(&inv).Updates(map[string]any{"paid": !inv.Paid, "updated_by_id": userID}).Error; err != nil {
		return nil, err
	}
	return s.Get(invoiceID)
}

// Get loads one invoice with items, products and client.
func (s *InvoiceService) Get(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.DB.Preload("Items.Product").Preload("Client").Preload("CreatedBy").First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// deleteInvoiceTree removes an invoice together with its items and any
// waybill derived from it.
func deleteInvoiceTree(tx *gorm.DB, invoiceID uint) error {
	var wb models.Waybill
	err := tx.Where("invoice_id = ?", invoiceID).First(&wb).Error
	switch {
	case err == nil:
		if err := tx.Where("waybill_id = ?", wb.ID).Delete(&models.WaybillItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Waybill{}, wb.ID).Error; err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Invoice{}, invoiceID).Error
}

// Delete removes an invoice with its items and waybill. Stock consumed
// by the invoice stays consumed; only the admin reset action restores
// quantities.
func (s *InvoiceService) Delete(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return deleteInvoiceTree(tx, inv.ID)
	})
}

// ResetYearNumbering is the destructive administrative escape hatch:
// among the selected invoices, those issued in the current year get
// their consumed stock restored and are deleted together with their
// items. Returns the number of invoices deleted; 0 means nothing in
// the selection belonged to the current year and the caller warns.
func (s *InvoiceService) ResetYearNumbering(ids []uint, now time.Time) (int, error) {
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	yearEnd := yearStart.AddDate(1, 0, 0)
	deleted := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var invoices []models.Invoice
		if err := tx.Preload("Items").
			Where("id IN ?", ids).
			Where("issue_date >= ? AND issue_date < ?", yearStart, yearEnd).
			Find(&invoices).Error; err != nil {
			return err
		}
		for _, inv := range invoices {
			if err := restoreLines(tx, inv.Items); err != nil {
				return err
			}
			if err := deleteInvoiceTree(tx, inv.ID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
