package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Waybill is a transport document ("guia de transporte") derived 1:1
// from an invoice. Its items copy quantities only; prices are not part
// of a waybill and stock was already adjusted at invoice issuance.
type Waybill struct {
	ID               uint    `gorm:"primaryKey"`
	Number           string  `gorm:"size:50;not null;uniqueIndex"` // own yearly sequence, same format as invoices
	InvoiceID        uint    `gorm:"not null;uniqueIndex"`         // at most one waybill per invoice
	Invoice          Invoice `gorm:"foreignKey:InvoiceID"`
	CreatedByID      *uint
	CreatedBy        *User     `gorm:"foreignKey:CreatedByID"`
	IssueDate        time.Time `gorm:"not null;index"`
	LoadingAddress   string
	UnloadingAddress string
	VehiclePlate     string        `gorm:"size:20"`
	Items            []WaybillItem `gorm:"foreignKey:WaybillID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type WaybillItem struct {
	ID        uint            `gorm:"primaryKey"`
	WaybillID uint            `gorm:"not null;index"`
	ProductID uint            `gorm:"not null;index"`
	Product   Product         `gorm:"foreignKey:ProductID"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}
