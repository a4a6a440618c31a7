package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/models"
)

// CatalogService covers product and client deletion guards. Creation
// and edits are plain writes handled at the HTTP layer; deletion needs
// the explicit referential checks the storage layer will not do for us.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService { return &CatalogService{DB: db} }

// DeleteProduct removes a product unless an invoice or waybill line
// still references it.
func (s *CatalogService) DeleteProduct(id uint) error {
	var product models.Product
	if err := s.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	var refs int64
	if err := s.DB.Model(&models.InvoiceItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	var wbRefs int64
	if err := s.DB.Model(&models.WaybillItem{}).Where("product_id = ?", id).Count(&wbRefs).Error; err != nil {
		return err
	}
	refs += wbRefs
	if refs > 0 {
		return &ReferentialIntegrityError{Entity: "product", Name: product.Label(), Refs: refs}
	}
	return s.DB.Delete(&models.Product{}, id).Error
}

// DeleteClient removes a client unless an invoice references it.
func (s *CatalogService) DeleteClient(id uint) error {
	var client models.Client
	if err := s.DB.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	var refs int64
	if err := s.DB.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return &ReferentialIntegrityError{Entity: "client", Name: client.Name, Refs: refs}
	}
	return s.DB.Delete(&models.Client{}, id).Error
}
