package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/models"
)

// WaybillInput carries the transport details; line items always come
// from the source invoice, never from the request.
type WaybillInput struct {
	LoadingAddress   string `json:"loading_address"`
	UnloadingAddress string `json:"unloading_address"`
	VehiclePlate     string `json:"vehicle_plate"`
}

type WaybillService struct {
	DB *gorm.DB
}

func NewWaybillService(db *gorm.DB) *WaybillService { return &WaybillService{DB: db} }

// CreateFromInvoice issues the waybill for an invoice: own yearly
// sequence number, one line per invoice item carrying quantity only.
// Rejected without side effects when the invoice already has one.
// Stock is untouched; it was decremented at invoice issuance.
func (s *WaybillService) CreateFromInvoice(userID uint, invoiceID uint, in WaybillInput) (*models.Waybill, error) {
	var created models.Waybill
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Preload("Items").First(&inv, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var existing int64
		if err := tx.Model(&models.Waybill{}).Where("invoice_id = ?", inv.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrWaybillExists
		}
		issueDate := time.Now()
		number, err := NextNumber(tx, issueDate.Year(), &models.Waybill{}, "number")
		if err != nil {
			return err
		}
		created = models.Waybill{
			Number:           number,
			InvoiceID:        inv.ID,
			CreatedByID:      &userID,
			IssueDate:        issueDate,
			LoadingAddress:   in.LoadingAddress,
			UnloadingAddress: in.UnloadingAddress,
			VehiclePlate:     in.VehiclePlate,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		for _, it := range inv.Items {
			line := models.WaybillItem{WaybillID: created.ID, ProductID: it.ProductID, Quantity: it.Quantity}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(created.ID)
}

// Update edits the transport details only. Items and number are fixed
// at creation.
func (s *WaybillService) Update(waybillID uint, in WaybillInput) (*models.Waybill, error) {
	var wb models.Waybill
	if err := s.DB.First(&wb, waybillID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	updates := map[string]any{
		"loading_address":   in.LoadingAddress,
		"unloading_address": in.UnloadingAddress,
		"vehicle_plate":     in.VehiclePlate,
	}
	if err := s.DB.Model(&wb).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(waybillID)
}

// Get loads one waybill with items, products, invoice and client.
func (s *WaybillService) Get(id uint) (*models.Waybill, error) {
	var wb models.Waybill
	if err := s.DB.Preload("Items.Product").Preload("Invoice.Client").First(&wb, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wb, nil
}
