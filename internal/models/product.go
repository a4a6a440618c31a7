package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Units of measure for quarry products.
const (
	UnitTon        = "ton"
	UnitCubicMeter = "m3"
	UnitPiece      = "un"
)

// Units lists the valid units of measure in display order.
var Units = []string{UnitTon, UnitCubicMeter, UnitPiece}

// Product is a sellable quarry product (gravel, sand, stone...).
// Stock must never go negative: issuance decrements it inside the
// invoice transaction and the guarded update enforces stock >= qty.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"not null;index"`
	Grade       string          // optional caliber, ex: 0/31.5
	Description string
	Unit        string          `gorm:"size:3;not null;default:'ton'"`
	Stock       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label renders the product name with its grade when present.
func (p Product) Label() string {
	if p.Grade != "" {
		return p.Name + " (" + p.Grade + ")"
	}
	return p.Name
}
