package models

import "time"

// Client entity
type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	TaxID     string `gorm:"index"` // NIF
	Address   string
	Phone     string `gorm:"index"`
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
